/*
Package flow loads IVR flows from YAML files and builds them into a controller.

A flow names its entry node, declares nodes (prompts, input policy,
validators, dial and record actions) and lists the transition rules in
evaluation order:

	entry: menu
	nodes:
	  - name: menu
	    prompts: [sound:main-menu]
	    input: {exactly: 1, time_between_digits: 5s, max_attempts: 3}
	  - name: sales
	    dial: {endpoint: "sip:sales@pbx.example.com", app: switchboard, hangup_digit: "*"}
	rules:
	  - {node: menu, on: complete, input: "1", jump: sales}
	  - {node: menu, on: complete, jump_expr: 'input == "0" ? "operator" : ""'}
	  - {node: menu, on: timeout, hangup: caller}

Validators and evaluated jumps are expressions over the finished node
(input, attempts, state, node) or names of callbacks in a registry.Registry.
*/
package flow
