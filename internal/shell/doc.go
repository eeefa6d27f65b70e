// Package shell runs the command dispatch loop.
//
// The loop reads one line at a time, first from a startup queue and then
// from an interactive line reader, looks the keyword up in a
// command.Registry and executes a fresh command instance per line. Exactly
// one command runs at a time. Each dispatch ends in an Outcome; Run decides
// whether to continue or terminate from it.
//
// Interrupts arrive out of band through Loop.Interrupt (Ctrl-C): a running
// command has its context cancelled and Abort called, otherwise the loop is
// asked to terminate.
package shell
