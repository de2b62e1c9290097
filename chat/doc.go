// Package chat answers questions about one indexed video with
// retrieval-augmented generation.
//
// An Engine embeds the question, retrieves the most similar transcript
// chunks, assembles a prompt that fits the context budget and asks the
// generation provider for an answer. Successful turns are appended to the
// chat session together with the chunks the answer was grounded on.
//
// # Context Budget
//
// When the prompt does not fit, material is dropped in this order:
//
//  1. the lowest ranked chunks, down to MinChunks
//  2. the oldest history messages
//  3. the remaining chunks
//
// A question that does not fit on its own is an input error.
//
// # Empty Retrieval
//
// When no chunk clears the similarity floor the engine either asks the
// provider to answer from general knowledge (WithGeneralKnowledge) or
// returns NoAnswerResponse without calling the provider. Both answers are
// marked ungrounded.
package chat
