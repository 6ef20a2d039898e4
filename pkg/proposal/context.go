package proposal

import (
	"strings"
	"time"

	"steward-hq/steward/pkg/yardstick"
)

const day = 24 * time.Hour

// BuildContext flattens a record into the evaluation context: the raw
// fields plus the derived ones conditions are usually written against.
//
// Derived keys:
//   - sender_domain: the domain part of From, lowercased
//   - age_days: days since the message arrived
//   - expired_days: days since ExpiresAt, negative before expiry;
//     absent when the record has no expiry
//   - labels: comma-joined label list
//   - label:<name>: true for each applied label
func BuildContext(r *Record, now time.Time) yardstick.Context {
	ctx := yardstick.Context{
		"record_id": yardstick.String(r.ID),
		"from":      yardstick.String(r.From),
		"subject":   yardstick.String(r.Subject),
		"age_days":  yardstick.Number(float64(now.Sub(r.ReceivedAt)) / float64(day)),
	}

	if r.Category != "" {
		ctx["category"] = yardstick.String(r.Category)
	}
	if d := senderDomain(r.From); d != "" {
		ctx["sender_domain"] = yardstick.String(d)
	}
	if !r.ReceivedAt.IsZero() {
		ctx["received_at"] = yardstick.Time(r.ReceivedAt)
	}
	if !r.ExpiresAt.IsZero() {
		ctx["expires_at"] = yardstick.Time(r.ExpiresAt)
		ctx["expired_days"] = yardstick.Number(float64(now.Sub(r.ExpiresAt)) / float64(day))
	}
	if len(r.Labels) > 0 {
		ctx["labels"] = yardstick.String(strings.Join(r.Labels, ","))
		for _, l := range r.Labels {
			ctx["label:"+l] = yardstick.Bool(true)
		}
	}
	return ctx
}

// StableFeatures returns the categorical features of a record that are
// safe to learn from and to turn back into conditions. Volatile
// numeric fields (ages, counts) are deliberately excluded.
func StableFeatures(r *Record) map[string]string {
	features := map[string]string{}
	if r.Category != "" {
		features["category"] = r.Category
	}
	if d := senderDomain(r.From); d != "" {
		features["sender_domain"] = d
	}
	return features
}

// FeatureKeys flattens stable features into the "key:value" strings
// the weight store is keyed by.
func FeatureKeys(features map[string]string) []string {
	keys := make([]string, 0, len(features))
	for _, k := range []string{"category", "sender_domain"} {
		if v, ok := features[k]; ok {
			keys = append(keys, k+":"+v)
		}
	}
	return keys
}

// senderDomain extracts the lowercased domain from an address, which
// may be bare ("a@b.com") or display form ("Name <a@b.com>").
func senderDomain(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	domain := addr[i+1:]
	domain = strings.TrimRight(domain, "> ")
	return strings.ToLower(domain)
}
