// Package policy evaluates Rego guardrails against calculated outcomes.
//
// A policy is a Rego module whose package defines a deny set. Each member
// is either a message string or an object with message, severity and
// metric keys; members without a severity take the policy's default. The
// input document carries the scenario name, its normalized parameters, every
// outcome metric under results and the percentile bands under
// uncertainties:
//
//	package nexus.guardrails.groundwater
//
//	deny contains violation if {
//		input.results.water_demand > 9000
//		violation := {"message": "groundwater drawdown", "severity": "error"}
//	}
//
// The engine starts with four built-in guardrails: water-stress,
// emissions, food-security and uncertainty-spread. Policies loaded from
// files replace built-ins of the same name. A result is allowed unless a
// violation has error or critical severity.
//
// Policy files are .rego or .json. A .rego policy is named after its file
// and may start with a comment header:
//
//	# Caps groundwater use.
//	# severity: error
//	# tags: water, groundwater
package policy
