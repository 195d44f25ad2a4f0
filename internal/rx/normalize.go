package rx

import "pharmacy-portal/pkg"

// Normalize turns one raw directive into its structured view: the ordered
// surviving candidate names and the directive-level dosage. The dosage is
// the most frequent value among surviving fragments, ties broken by
// first-seen order; when no surviving fragment carries one, the whole raw
// text gets a single extra extraction pass. An empty candidate list is a
// valid result and downstream matching reports it as quality "none".
func Normalize(raw string) pkg.NormalizedDirective {
	d := pkg.NormalizedDirective{Raw: raw}
	counts := map[string]int{}
	var seen []string
	for _, frag := range SplitDirective(raw) {
		c := CleanFragment(frag)
		if !PlausibleDrugName(c.Name) {
			continue
		}
		d.CandidateNames = append(d.CandidateNames, c.Name)
		if c.Dosage != "" {
			if counts[c.Dosage] == 0 {
				seen = append(seen, c.Dosage)
			}
			counts[c.Dosage]++
		}
	}
	for _, v := range seen {
		if counts[v] > counts[d.Dosage] {
			d.Dosage = v
		}
	}
	if d.Dosage == "" {
		d.Dosage = ExtractDosage(raw)
	}
	return d
}
