// Package nats exposes mixers over embedded NATS messaging.
//
// # Architecture
//
//   - Server: Embedded NATS server running in the main process (optional)
//   - Publisher: Forwards event bus traffic to NATS subjects
//   - Controller: Applies control commands received over NATS to the registry
//   - ControlClient: Sends control commands and waits for the reply
//
// # Subject Hierarchy
//
//	switchboard.mixers.{mixer}.events     # Lifecycle events (server → clients)
//	switchboard.mixers.{mixer}.stats      # Per-mixer counters (server → clients)
//	switchboard.control.{mixer}.active    # Switch the active input (clients → server)
//	switchboard.control.{mixer}.remove    # Remove an input (clients → server)
//
// Events are fire-and-forget (core NATS, no JetStream). Control commands
// answer with a ControlReply when sent as a request.
//
// # Useful Debug Commands
//
// Monitor all mixer events:
//
//	nats sub "switchboard.mixers.>"
//
// Switch the active input of mixer "studio":
//
//	nats request "switchboard.control.studio.active" '{"input":"camera2"}'
//
// # Message Formats
//
// EventMessage (switchboard.mixers.{mixer}.events):
//
//	{
//	  "id": "0b8e4c5e-8f0b-4e53-9a43-3f1f2c1c6a10",
//	  "event": "active-input-changed",
//	  "mixer": "studio",
//	  "timestamp": "2026-01-01T12:00:00Z",
//	  "data": {"mixer": "studio", "input": "camera2", "partial": false}
//	}
//
// ControlMessage (switchboard.control.{mixer}.active):
//
//	{
//	  "input": "camera2",
//	  "reason": "operator"
//	}
//
// ControlReply:
//
//	{"ok": false, "code": "NOT_FOUND", "error": "input camera9 not found"}
package nats
