// Package mock provides test double implementations of the ai capabilities.
//
// Every double counts its calls and lets tests replace behavior through a
// function field. Defaults are deterministic so expectations can be written
// against real pipeline, chat and summary code.
//
// # Usage in Tests
//
//	set := mock.NewSet()
//	set.Generator.GenerateFunc = func(ctx context.Context, req ai.GenerateRequest) (string, error) {
//	    return "an answer", nil
//	}
//	engine, err := vidchat.NewEngine(dir, set.Providers())
//	...
//	count := set.Generator.CallCount()
//
// # Default Behavior
//
//   - MockMediaFetcher: returns a small fake audio payload for any video id
//   - MockTranscriber: returns the segments registered for the video id
//   - MockEmbedder: hashes words into a bag-of-words vector, so texts sharing
//     words are similar
//   - MockGenerator: echoes a short deterministic response
package mock
