/*
Package switchboard is an event-driven IVR (interactive voice response) engine.

A call is driven by a controller that runs one node at a time. A node plays
its prompts as a sound chain, collects DTMF digits under a retry and timer
policy, validates them and ends in a terminal state (complete, cancel,
timeout or max attempts reached). Rules attached to the node then decide the
next step: jump to another node, run a callback, or hang up.

# Concept

The engine never talks to a telephony server directly. Commands go through
the ports.Telephony interface and progress comes back as events dispatched
into a call.Session. The in-memory simulator in pkg/adapters/memory
implements both sides, which makes flows runnable in tests and from the CLI.

Flows are usually declared in YAML (see pkg/flow) and compiled into a
controller for every call.

# Usage

	eng, err := switchboard.New("flow.yaml",
		switchboard.WithRegistry(reg),
		switchboard.WithTrail(memory.NewStore()),
	)
	if err != nil {
		log.Fatal(err)
	}

	// session wraps the answered channel and its bridge
	if err := eng.Handle(ctx, session); err != nil {
		log.Printf("call failed: %v", err)
	}

For a quick look at a flow without a telephony server, Runner presses a
scripted sequence of digits against the simulator:

	visits, err := switchboard.NewRunner(os.Stdout, "2,12345674").Run(ctx, eng)
*/
package switchboard
