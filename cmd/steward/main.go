// Steward is a rule-automation runtime for email triage.
//
// It evaluates mailbox records against operator-defined policies,
// proposes actions with calibrated confidence, routes them through an
// approval lifecycle with a full audit trail, and rolls policy bundles
// out behind a canary controller with automatic regression rollback.
//
// Usage:
//
//	# Start the daemon (detector scheduler, telemetry, policy watch)
//	steward run
//
//	# Start with custom configuration file
//	steward run --config /path/to/config.yaml
//
//	# Validate policy files
//	steward policy validate
//
//	# Review pending proposals
//	steward proposals list --status pending
//	steward proposals approve <id> --reviewer alice
//
//	# Manage bundle rollout
//	steward rollout activate <version> --approval <id> --actor alice
//	steward rollout status
//
//	# Query the audit trail
//	steward audit query --record <record-id>
package main

func main() {
	Execute()
}
