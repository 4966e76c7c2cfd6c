/*
Package domain contains the core domain models of the Switchboard IVR engine.

It defines the fundamental values shared by the dialog engine, such as node
outcomes, playback targets, dial and record specifications and the error
taxonomy of the telephony service. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - State: The outcome of one node run (NotRun, Cancel, Complete, Timeout, MaxInputsReached).
  - Target: A playback or recording target (a channel or a bridge).
  - DialSpec / RecordSpec: Optional side-effects a node performs after input collection.
  - Visit: One finished node in the trail of a call.
*/
package domain
