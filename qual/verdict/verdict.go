//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package verdict classifies canonical metrics against threshold
// rules. Classification is a pure function of its inputs: no I/O, no
// clock, and the same metrics and rules always produce the same
// verdict regardless of ordering.
package verdict

import (
	"fmt"

	"github.com/hwqual/hwqual/qual"
)

// DefaultCorrectableWarn is the correctable ECC error count above
// which a memory device is flagged for attention. Correctable errors
// are not failures, but a high rate predicts uncorrectable ones.
const DefaultCorrectableWarn = 100

func floatPtr(f float64) *float64 { return &f }

// builtinRules supplies thresholds for the error-class metrics that
// have fixed domain semantics. An explicit rule for the same metric
// takes precedence and suppresses the built-in.
func builtinRules(byName map[string]qual.Metric, explicit []qual.Rule) []qual.Rule {
	covered := make(map[string]bool, len(explicit))
	for _, r := range explicit {
		covered[r.Metric] = true
	}

	var rules []qual.Rule
	addIfMeasured := func(r qual.Rule) {
		if covered[r.Metric] {
			return
		}
		if _, ok := byName[r.Metric]; ok {
			rules = append(rules, r)
		}
	}

	// any uncorrectable error or pattern failure means bad hardware
	addIfMeasured(qual.Rule{Metric: qual.MetricNameECCUncorrectable, FailMax: floatPtr(0)})
	addIfMeasured(qual.Rule{Metric: qual.MetricNamePatternFailures, FailMax: floatPtr(0)})
	addIfMeasured(qual.Rule{Metric: qual.MetricNameIOErrors, FailMax: floatPtr(0)})
	addIfMeasured(qual.Rule{Metric: qual.MetricNameECCCorrectable, WarnMax: floatPtr(DefaultCorrectableWarn)})

	return rules
}

// Classify evaluates every rule against the metrics and returns the
// most severe outcome. A rule that references a metric that was never
// measured yields an error verdict; silently passing it would hide a
// misconfigured threshold.
func Classify(metrics []qual.Metric, rules []qual.Rule) qual.Verdict {
	byName := make(map[string]qual.Metric, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m
	}

	v := qual.Verdict{Status: qual.StatusPass, Metrics: metrics}

	all := append(builtinRules(byName, rules), rules...)
	for i := range all {
		rule := all[i]

		var status qual.Status
		var reason string
		if m, ok := byName[rule.Metric]; ok {
			status, reason = evaluate(rule, m)
		} else {
			status = qual.StatusError
			reason = fmt.Sprintf("threshold references metric %q, which was not measured", rule.Metric)
		}

		if status.Severity() > v.Status.Severity() {
			v.Status = status
			v.Rule = &all[i]
			v.Reason = reason
		}
	}

	return v
}

func evaluate(r qual.Rule, m qual.Metric) (qual.Status, string) {
	if r.FailMin != nil && m.Value < *r.FailMin {
		return qual.StatusFail, fmt.Sprintf("%s %g below failure floor %g", m.Name, m.Value, *r.FailMin)
	}
	if r.FailMax != nil && m.Value > *r.FailMax {
		return qual.StatusFail, fmt.Sprintf("%s %g above failure ceiling %g", m.Name, m.Value, *r.FailMax)
	}
	if r.WarnMin != nil && m.Value < *r.WarnMin {
		return qual.StatusWarn, fmt.Sprintf("%s %g below warning floor %g", m.Name, m.Value, *r.WarnMin)
	}
	if r.WarnMax != nil && m.Value > *r.WarnMax {
		return qual.StatusWarn, fmt.Sprintf("%s %g above warning ceiling %g", m.Name, m.Value, *r.WarnMax)
	}
	return qual.StatusPass, ""
}
