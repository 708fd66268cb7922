// Package llm provides a chat-completions client used to write chapters.
//
// The client speaks the OpenAI-compatible /chat/completions wire format over
// plain HTTP so any compatible gateway can be configured through base_url.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts with sampling settings, receive prose.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts and empty
// completions with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). A Retry-After header takes precedence over the computed delay.
// Context cancellation aborts retries immediately.
package llm
