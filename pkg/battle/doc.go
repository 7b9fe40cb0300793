// Package battle implements the email-battle workflow engine.
//
// A battle is an adversarial exchange between two personas: the evaluator
// (side A) broadcasts a request, the respondent (side B) replies, and the
// evaluator decides whether to pass, probe further, terminate or retain.
// Follow-up rounds are bounded by State.MaxFollowUpRounds.
//
// # Graph
//
// The workflow is a small explicit graph of five nodes and three routers:
//
//	start → mass_email → respondent_initial ─┬→ evaluator_decision ⇄ respondent_follow_up
//	                                         └→ outcome_resolver ← (terminal decisions, refusal, round limit)
//
// Every node is a handler that reads a State and returns an Update. The
// Engine merges each Update into the State through an explicit per-field
// merge policy table and then consults the node's router for the next node.
//
// # Backends
//
// Persona text comes from textgen.Generator backends, one per persona. The
// evaluator's decision is requested in structured mode and validated against
// a JSON schema before it can reach the State. Prompt text, addresses and
// subjects come from a Script.
//
// # Outcome
//
// OutcomeResolver maps the final State to an Outcome, and WinnerFor maps an
// Outcome to a Winner. A respondent refusal resolves the battle early with
// Outcome REFUSAL and Winner A.
package battle
