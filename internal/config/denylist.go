package config

// DefaultDenylistDomains returns the sensitive domains that are not timed when
// the privacy level is "strict": banking, password managers, healthcare
// portals, identity providers and similar services.
func DefaultDenylistDomains() []string {
	return []string{
		// Banking & payments
		"chase.com",
		"bankofamerica.com",
		"wellsfargo.com",
		"capitalone.com",
		"schwab.com",
		"fidelity.com",
		"paypal.com",
		"venmo.com",

		// Password managers
		"1password.com",
		"lastpass.com",
		"bitwarden.com",
		"dashlane.com",

		// Identity
		"accounts.google.com",
		"login.microsoftonline.com",
		"okta.com",
		"login.gov",
		"id.me",

		// Healthcare
		"mychart.com",
		"kp.org",
		"healthcare.gov",

		// Tax
		"irs.gov",
		"turbotax.intuit.com",
	}
}
