package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ParseJSON cleans and unmarshals a JSON object out of a raw completion.
// It tolerates common quirks like markdown fences or prose around the
// object by slicing from the first '{' to the last '}'.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := -1
	end := -1
	for i, c := range response {
		if c == '{' {
			start = i
			break
		}
	}
	for i := len(response) - 1; i >= 0; i-- {
		if response[i] == '}' {
			end = i + 1
			break
		}
	}

	if start == -1 || end <= start {
		return zero, fmt.Errorf("no JSON object found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(response[start:end]), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// GenerateParsed runs a completion and parses the reply into T. This is the
// structured-completion entry point: the schema is conveyed in the prompt,
// and the shape is enforced locally rather than trusted.
func GenerateParsed[T any](ctx context.Context, c Client, prompt string) (T, error) {
	var zero T
	response, err := c.Generate(ctx, prompt)
	if err != nil {
		return zero, err
	}
	return ParseJSON[T](response)
}
