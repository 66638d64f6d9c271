package domain

// Source identifies the upstream provider a record was normalized from.
type Source string

const (
	// SourceHelius is the push-style enhanced webhook payload.
	SourceHelius Source = "helius"
	// SourceShyft is the pull-style parsed transaction API.
	SourceShyft Source = "shyft"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceHelius || s == SourceShyft
}
