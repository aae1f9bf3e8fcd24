// Package agent drives tool-using multi-turn conversations.
//
// An Executor is the run primitive: one tool-capable run over an
// accumulated conversation, producing typed Items in production order.
// LoopExecutor implements it over an in-process tool Registry, executing
// requested tools locally and feeding their output back to the model
// until it produces a plain-text turn, invokes a stop tool, or hits the
// internal turn bound.
//
// A Driver wraps an Executor with per-trial conversation state. Each Run
// call is one outer turn: the input becomes a user message, the executor
// runs, and every produced item is translated into exactly one typed
// message, accumulated, and returned. Unrecognized-tool errors are
// retried with a synthetic developer correction and doubling backoff;
// every other error class stops the driver.
package agent
