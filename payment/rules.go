package payment

import (
	"net/url"
	"strings"

	serrors "go.pilab.hu/selfcare/errors"
)

// The payment processor returns no structured callback to client code; the
// only signal is the sequence of URLs the hosted surface navigates through.
// Classification is therefore an ordered table of heuristic string rules,
// most specific first. First match wins: the later, broader rules exist to
// catch what the earlier specific ones miss, so the ordering is part of the
// protocol and is unit-tested on its own.

// Verdict is what a matched rule decided.
type Verdict int

const (
	VerdictSuccess Verdict = iota + 1
	VerdictCancel
	VerdictFail
)

// Resolution carries a rule's decision. Deferred resolutions are finalized
// after a short delay so a confirmation page served by the processor can
// still render; failures finalize immediately.
type Resolution struct {
	Verdict   Verdict
	PaymentID string           // success only
	Reason    serrors.Category // failure only
	Deferred  bool
	Rule      string // name of the matching rule
}

// Rule is one entry of the classification table.
type Rule struct {
	Name  string
	Match func(n *navigation) (Resolution, bool)
}

// navigation is a navigated URL prepared for rule matching. Matching is
// substring-based on the raw URL, exactly as the processor integration
// behaves in the wild; the parsed query is only used to extract ids.
type navigation struct {
	raw   string
	query url.Values
}

func newNavigation(rawURL string) *navigation {
	n := &navigation{raw: rawURL}
	if u, err := url.Parse(rawURL); err == nil {
		n.query = u.Query()
	} else if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		if q, err := url.ParseQuery(rawURL[i+1:]); err == nil {
			n.query = q
		}
	}
	if n.query == nil {
		n.query = url.Values{}
	}
	return n
}

func (n *navigation) contains(s string) bool { return strings.Contains(n.raw, s) }

func (n *navigation) param(keys ...string) string {
	for _, k := range keys {
		if v := n.query.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// RuleTable classifies navigated URLs in priority order.
type RuleTable struct {
	rules []Rule
}

// Classify runs rawURL through the table and returns the first match.
func (t *RuleTable) Classify(rawURL string) (Resolution, bool) {
	n := newNavigation(rawURL)
	for _, r := range t.rules {
		if res, ok := r.Match(n); ok {
			res.Rule = r.Name
			return res, true
		}
	}
	return Resolution{}, false
}

// Rules returns the table entries in evaluation order.
func (t *RuleTable) Rules() []Rule { return t.rules }

// NewRuleTable builds the default table. processorDomain is the substring
// marker identifying the processor's own pages (e.g. "payfast").
func NewRuleTable(processorDomain string) *RuleTable {
	return &RuleTable{rules: []Rule{
		{
			// Our own return endpoint reporting success. Without a payment
			// id the payment may have completed but cannot be verified.
			Name: "explicit-success",
			Match: func(n *navigation) (Resolution, bool) {
				if !n.contains("payment-success") || !n.contains("status=success") {
					return Resolution{}, false
				}
				if id := n.param("payment_id"); id != "" {
					return Resolution{Verdict: VerdictSuccess, PaymentID: id, Deferred: true}, true
				}
				return Resolution{Verdict: VerdictFail, Reason: serrors.CategoryVerificationFailed}, true
			},
		},
		{
			Name: "explicit-cancel",
			Match: func(n *navigation) (Resolution, bool) {
				if n.contains("payment-cancelled") && n.contains("status=cancelled") {
					return Resolution{Verdict: VerdictCancel, Deferred: true}, true
				}
				return Resolution{}, false
			},
		},
		{
			Name: "processor-success",
			Match: func(n *navigation) (Resolution, bool) {
				if !n.contains("return_url") &&
					!n.contains("payment_status=COMPLETE") &&
					!n.contains("payment_status=complete") &&
					!(n.contains("success") && n.contains(processorDomain)) {
					return Resolution{}, false
				}
				id := n.param("m_payment_id", "payment_id", "pf_payment_id")
				if id == "" {
					// The processor sometimes returns no id at all on this
					// path; the literal placeholder is what the upstream
					// contract historically produced. Suspect, but kept.
					id = "success"
				}
				return Resolution{Verdict: VerdictSuccess, PaymentID: id, Deferred: true}, true
			},
		},
		{
			Name: "processor-cancel",
			Match: func(n *navigation) (Resolution, bool) {
				if n.contains("cancel") ||
					n.contains("payment_status=CANCELLED") ||
					n.contains("payment_status=cancelled") ||
					(n.contains("cancelled") && n.contains(processorDomain)) {
					return Resolution{Verdict: VerdictCancel, Deferred: true}, true
				}
				return Resolution{}, false
			},
		},
		{
			Name: "processor-failure",
			Match: func(n *navigation) (Resolution, bool) {
				if !n.contains("error") &&
					!n.contains("failed") &&
					!n.contains("payment_status=FAILED") &&
					!n.contains("payment_status=failed") &&
					!(n.contains("fail") && n.contains(processorDomain)) {
					return Resolution{}, false
				}
				reason := serrors.CategoryPaymentGeneric
				switch {
				case n.contains("timeout"):
					reason = serrors.CategoryTimeout
				case n.contains("declined"):
					reason = serrors.CategoryDeclined
				case n.contains("insufficient"):
					reason = serrors.CategoryInsufficientFunds
				}
				return Resolution{Verdict: VerdictFail, Reason: reason}, true
			},
		},
		{
			// Lowest priority: path-shaped hints, only on the processor's
			// own domain.
			Name: "processor-path",
			Match: func(n *navigation) (Resolution, bool) {
				if !n.contains(processorDomain) {
					return Resolution{}, false
				}
				switch {
				case n.contains("/success") || n.contains("/complete"):
					return Resolution{Verdict: VerdictSuccess, PaymentID: processorDomain + "_success", Deferred: true}, true
				case n.contains("/cancel") || n.contains("/cancelled"):
					return Resolution{Verdict: VerdictCancel, Deferred: true}, true
				case n.contains("/error") || n.contains("/fail"):
					return Resolution{Verdict: VerdictFail, Reason: serrors.CategoryPaymentGeneric}, true
				}
				return Resolution{}, false
			},
		},
	}}
}
