package recipients

import (
	"strings"
)

const (
	// GroupSalutation addresses a merged record that covers several authors.
	GroupSalutation = "生徒の皆さま"
	// PersonalHonorific is appended to a single author's name.
	PersonalHonorific = "さま"
	// PlaceholderName stands in for a name that is empty after stripping.
	PlaceholderName = "生徒"
)

// honorificSuffixes are stripped from names, longest first.
var honorificSuffixes = []string{"さま", "様"}

// WorkIndex maps an author ID to the works that list it.
type WorkIndex map[string][]Work

// MergeByEmail collapses records sharing an exact email into one. The first
// record's name wins, author IDs are unioned in first-seen order and the
// output keeps the order in which each email first appeared.
func MergeByEmail(records []AuthorRecord) []AuthorRecord {
	merged := make([]AuthorRecord, 0, len(records))
	position := make(map[string]int, len(records))
	seen := make(map[string]map[string]struct{}, len(records))

	for _, record := range records {
		i, ok := position[record.Email]
		if !ok {
			i = len(merged)
			position[record.Email] = i
			seen[record.Email] = map[string]struct{}{}
			merged = append(merged, AuthorRecord{
				AuthorIDs: []string{},
				Email:     record.Email,
				Name:      record.Name,
			})
		}
		ids := seen[record.Email]
		for _, id := range record.AuthorIDs {
			if _, dup := ids[id]; dup {
				continue
			}
			ids[id] = struct{}{}
			merged[i].AuthorIDs = append(merged[i].AuthorIDs, id)
		}
	}
	return merged
}

// IndexWorksByAuthor files every work under each of its author IDs.
func IndexWorksByAuthor(works []Work) WorkIndex {
	index := make(WorkIndex)
	for _, work := range works {
		for _, id := range work.AuthorIDs {
			index[id] = append(index[id], work)
		}
	}
	return index
}

// FilterEligible keeps recipients with at least one indexed author ID.
func FilterEligible(recipients []AuthorRecord, index WorkIndex) []AuthorRecord {
	eligible := make([]AuthorRecord, 0, len(recipients))
	for _, recipient := range recipients {
		for _, id := range recipient.AuthorIDs {
			if len(index[id]) > 0 {
				eligible = append(eligible, recipient)
				break
			}
		}
	}
	return eligible
}

// CollectWorks gathers every work reachable from the recipient's author IDs,
// each exactly once, in the order first reached.
func CollectWorks(recipient AuthorRecord, index WorkIndex) []Work {
	var works []Work
	added := map[string]struct{}{}
	for _, id := range dedupe(recipient.AuthorIDs) {
		for _, work := range index[id] {
			sig := Signature(work)
			if _, dup := added[sig]; dup {
				continue
			}
			added[sig] = struct{}{}
			works = append(works, work)
		}
	}
	return works
}

// Signature identifies a work for delivery dedup: the title plus its ordered
// author IDs. Works with equal titles but different authors stay distinct.
func Signature(work Work) string {
	return work.Title + "\x00" + strings.Join(work.AuthorIDs, "\x00")
}

// Salutation returns how a recipient is addressed. Records covering more
// than one author get GroupSalutation since the name may belong to any of
// them.
func Salutation(recipient AuthorRecord) string {
	if len(dedupe(recipient.AuthorIDs)) > 1 {
		return GroupSalutation
	}
	name := strings.TrimSpace(recipient.Name)
	for _, suffix := range honorificSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = PlaceholderName
	}
	return name + PersonalHonorific
}

// Plan runs the full pipeline and returns one notification per eligible
// merged recipient. Records without an email cannot be delivered and are
// dropped before merging.
func Plan(records []AuthorRecord, works []Work) []Notification {
	deliverable := make([]AuthorRecord, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.Email) != "" {
			deliverable = append(deliverable, record)
		}
	}

	index := IndexWorksByAuthor(works)
	eligible := FilterEligible(MergeByEmail(deliverable), index)

	plan := make([]Notification, 0, len(eligible))
	for _, recipient := range eligible {
		plan = append(plan, Notification{
			Recipient:  recipient,
			Works:      CollectWorks(recipient, index),
			Salutation: Salutation(recipient),
		})
	}
	return plan
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
