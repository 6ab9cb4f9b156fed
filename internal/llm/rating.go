package llm

import (
	"fmt"
	"regexp"
	"strconv"
)

// ratingSystemPrompt instructs the model to reason first and close with the
// numeric score between hash marks, which ExtractRating pulls out.
const ratingSystemPrompt = "Rate the following content out of 100 based on how much you would recommend it to a user. " +
	"Consider factors such as clarity, informativeness, and engagement. " +
	"Provide your reasoning, and then at the end of your response, include the total numerical rating between two hash symbols, like this: #90#"

var ratingPattern = regexp.MustCompile(`#(\d+)#`)

// ExtractRating finds the #NN# score in a rating response. The match may sit
// anywhere in the text; models do not reliably put it last.
func ExtractRating(text string) (int, error) {
	match := ratingPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("no rating found in response")
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("unparsable rating %q: %w", match[1], err)
	}
	return score, nil
}
