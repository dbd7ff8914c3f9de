// Package soap defines the structured clinical report schema produced by the
// extraction stage (Subjective, Objective, Assessment, Plan) along with its
// validation rules.
//
// A Record is valid when the patient name and all four narrative sections are
// populated, the session date is not in the future, and the follow-up date,
// when present, falls after the session date.
package soap
