// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - HeadlineStore: Append-only headline persistence
//   - RunStore: Atomic persistence of finished pipeline runs
//   - EmbeddingService: Turns headline text into vectors
//   - LLMService: External text generation used for summaries
//   - SummaryCache: Response cache owned by the summarizer gateway
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - HeadlineSource: Produces raw headlines for ingestion (files, inbox)
//   - PromptStore: User-editable prompt templates
//   - SchedulerStore: Task history for the interval scheduler
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
