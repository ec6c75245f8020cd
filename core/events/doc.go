// Package events defines the typed session event contract.
//
// Every state transition inside the session orchestrator is driven by one of
// these events arriving on the orchestrator queue; collaborators never mutate
// session state directly. Event kinds are grouped by source namespaces:
//
//   - command.*  — user-facing commands (begin/end recording, submit text)
//   - capture.*  — audio capture lifecycle (started, finalized, failed)
//   - silence.*  — level-detector edges (speech ended, speech resumed)
//   - timer.*    — generation-tagged timer firings
//   - turn.*     — dispatch outcome (completed, failed)
//   - playback.* — response playback completion
//
// Timer events carry the recording generation they were armed in; the
// orchestrator discards firings whose generation no longer matches, so a
// timer from a superseded recording can never act on a newer one.
package events
