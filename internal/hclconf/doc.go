// Package hclconf loads apiflow's HCL files: the CLI configuration and
// workflow documents authored in HCL rather than exported as JSON.
//
// Both file kinds are evaluated with an `env` object holding the process
// environment, so secrets can stay out of the files:
//
//	api {
//	  url   = "https://engine.example.com"
//	  token = env.APIFLOW_TOKEN
//	}
package hclconf
