// Package lab is a red-teaming harness for autonomous LLM agents. It
// generates prompt variants from named mutation points, runs each through
// a multi-turn tool-using conversation against a synthetic persona under
// a bounded-concurrency scheduler, and scores the finished transcripts
// for safety violations with a parallel multi-classifier judge.
//
// The subpackages compose around a shared message model:
//
//   - llm: typed messages, the completion client, and its caching layer
//   - cache: content-addressed completion cache backends
//   - mutation: Cartesian expansion of prompt templates
//   - persona: simulated human actors
//   - agent: the tool-loop executor and conversation driver
//   - schedule: the concurrent trial scheduler
//   - judge: parallel violation classification
//   - storage: experiment and transcript persistence
//
// The Lab type in this package wires all of them from one Settings value:
//
//	settings, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	l, err := lab.New(ctx, settings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	report, err := l.Run(ctx, "curfew pressure", template, personas, factory)
package lab
