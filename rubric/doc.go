/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rubric defines weighted evaluation rubrics.
//
// A Rubric is an ordered list of Criteria. Each Criterion carries a name, a
// non-negative weight and the instructional prompt sent to the scoring model.
// Criterion order is significant: evaluation results are always reported in
// the same order as the rubric's criteria.
//
// # On-disk format
//
// Rubrics are stored as JSON documents of the form:
//
//	{
//	  "criteria": [
//	    {"name": "Clarity", "weight": 0.4, "prompt": "Assess how clearly ..."},
//	    {"name": "Feasibility", "weight": 0.6, "prompt": "Assess whether ..."}
//	  ]
//	}
//
// A criterion without a weight decodes with a weight of 1.0. The same shape can
// be exchanged as YAML with MarshalYAML and UnmarshalYAML.
//
// # Editing
//
// Rubric values are treated as immutable. Add, Replace and Remove return a new
// Rubric and never modify the receiver, so a rubric handed to an evaluation
// round cannot change underneath it.
package rubric
