// Package io reads report documents and writes page plans.
//
// # Documents
//
// Documents can be written as JSON, TOML or YAML; the format is chosen from
// the file extension by [ImportDocument], or passed explicitly to
// [ReadDocument]:
//
//	d, err := io.ImportDocument("diary.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The TOML form of a small diary:
//
//	title = "Work diary 2024-03-01"
//
//	[[sections]]
//	kind = "card"
//	title = "Site"
//	fields = [{ label = "Client", value = "Acme" }]
//
//	[[sections]]
//	kind = "signatures"
//	signatures = [{ role = "Operator" }, { role = "Client" }]
//
// Every decoded document is validated; failures carry
// errors.ErrCodeInvalidDocument.
//
// # Plans
//
// [WritePlanJSON] and [ExportPlanJSON] write a computed [plan.Plan] together
// with the sections it was computed from, for inspection or for feeding an
// external renderer.
package io
