// Package app contains the core application logic. It builds the
// collaborators from configuration and executes one command, decoupled from
// any specific entrypoint like the CLI.
package app
