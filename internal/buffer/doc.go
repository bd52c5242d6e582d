// Package buffer provides the queues that decouple pipeline stages.
//
//   - Handoff: bounded FIFO between the scheduler and the submission worker.
//     Send blocks while full; nothing accepted is ever dropped. Close is a
//     terminal state observed by both sides.
//   - GrowableBuffer: non-blocking FIFO for best-effort side channels such as
//     the submission journal. Grows up to a ceiling, then sheds the oldest item.
package buffer
