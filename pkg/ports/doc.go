/*
Package ports defines the driven ports (interfaces) for the Switchboard engine.

These interfaces decouple the dialog engine from external implementations, allowing
the engine to work with any telephony control service and any visit storage backend.

# Key Interfaces

  - Telephony: The asynchronous call-control command service (playback, recording, originate, bridge).
  - TrailStore: Responsible for persisting the visited nodes of a call.
*/
package ports
