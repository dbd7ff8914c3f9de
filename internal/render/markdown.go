package render

import (
	"fmt"
	"strings"
)

// Markdown renders the report as a Markdown document.
func Markdown(doc Document) string {
	r := doc.Record
	var b strings.Builder

	b.WriteString("# SOAP Report\n")
	b.WriteString("## Physiotherapy Session Documentation\n\n---\n\n")

	b.WriteString("### Patient Information\n")
	fmt.Fprintf(&b, "- **Patient Name:** %s\n", r.PatientName)
	fmt.Fprintf(&b, "- **Session Date:** %s\n", r.SessionDate)
	if r.TherapistName != "" {
		fmt.Fprintf(&b, "- **Therapist:** %s\n", r.TherapistName)
	}
	if r.SessionDuration > 0 {
		fmt.Fprintf(&b, "- **Session Duration:** %d minutes\n", r.SessionDuration)
	}
	if r.ChiefComplaint != "" {
		fmt.Fprintf(&b, "- **Chief Complaint:** %s\n", r.ChiefComplaint)
	}

	fmt.Fprintf(&b, "\n---\n\n## SUBJECTIVE\n\n%s\n", r.Subjective)
	fmt.Fprintf(&b, "\n---\n\n## OBJECTIVE\n\n%s\n", r.Objective)
	fmt.Fprintf(&b, "\n---\n\n## ASSESSMENT\n\n%s\n", r.Assessment)
	fmt.Fprintf(&b, "\n---\n\n## PLAN\n\n%s\n\n---\n", r.Plan)

	if r.TreatmentGoals != "" {
		fmt.Fprintf(&b, "\n### Treatment Goals\n\n%s\n\n---\n", r.TreatmentGoals)
	}
	if !r.FollowUpDate.IsZero() {
		fmt.Fprintf(&b, "\n### Follow-up Information\n\n- **Next Appointment:** %s\n\n---\n", r.FollowUpDate)
	}

	fmt.Fprintf(&b, "\n*Report generated on %s*\n", doc.GeneratedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
