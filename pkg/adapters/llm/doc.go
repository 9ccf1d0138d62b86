// Package llm provides LLM client implementations used by the generation
// actions.
//
// The factory creates LLM clients based on provider configuration.
// Currently supports:
//   - Anthropic Claude
package llm
