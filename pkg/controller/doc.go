/*
Package controller wires IVR nodes into a flow graph.

A Controller owns the nodes of one call, registered by name, and an ordered
list of rules per node. JumpTo runs a node and, when it finishes, evaluates
the rules registered for it against its outcome:

	c := controller.New(session)
	c.Register("menu").Prompts("sound:menu").ExpectExactly(1)
	c.Register("sales").Prompts("sound:sales")
	c.RegisterResult("menu").OnComplete().WithInput("1").JumpTo("sales")
	c.RegisterResult("menu").OnTimeout().Hangup(false)

	err := c.JumpTo(ctx, "menu")

Rules are evaluated in registration order. The first matching jump or hangup
ends the evaluation; execute rules run their callback and let evaluation go
on. Dispatch stops when no rule produces a jump.
*/
package controller
