package domain

// CheckKind identifies what a check exercises against the deployment.
type CheckKind string

const (
	// CheckPayload generates a random test file locally.
	CheckPayload CheckKind = "payload"
	// CheckEncrypt seals a local file into a Crypt4GH container.
	CheckEncrypt CheckKind = "encrypt"
	// CheckSSH probes SSH authentication against the inbox.
	CheckSSH CheckKind = "ssh"
	// CheckSFTPUpload uploads a file to the SFTP inbox.
	CheckSFTPUpload CheckKind = "sftp_upload"
	// CheckSFTPRemove removes a previously uploaded file from the SFTP inbox.
	CheckSFTPRemove CheckKind = "sftp_remove"
	// CheckS3Upload uploads a file to the S3 inbox bucket.
	CheckS3Upload CheckKind = "s3_upload"
	// CheckS3Remove removes an object from the S3 inbox bucket.
	CheckS3Remove CheckKind = "s3_remove"
	// CheckDBStatus polls the archive database until a file reaches a status.
	CheckDBStatus CheckKind = "db_status"
	// CheckMQStatus waits for a broker message that references a file.
	CheckMQStatus CheckKind = "mq_status"
	// CheckAPI performs an HTTP request with assertions and extraction.
	CheckAPI CheckKind = "api"
)

// KnownKinds lists every check kind a suite may declare.
func KnownKinds() []CheckKind {
	return []CheckKind{
		CheckPayload, CheckEncrypt,
		CheckSSH, CheckSFTPUpload, CheckSFTPRemove,
		CheckS3Upload, CheckS3Remove,
		CheckDBStatus, CheckMQStatus, CheckAPI,
	}
}

// Params holds kind-specific, templated check parameters.
type Params map[string]string

// Headers is a map representation of HTTP headers (api checks only).
type Headers map[string]string

// JSONPathAssertion defines a JSONPath-based check on an API response.
type JSONPathAssertion struct {
	Exists   bool
	Eq       *string
	Contains *string
	Matches  *string
	Gt       *float64
	Lt       *float64
}

// AssertionsSpec defines functional assertions for a check.
type AssertionsSpec struct {
	// Status is an expected HTTP status code (api checks, optional).
	Status *int

	// MaxLatencyMS is a maximum allowed latency in milliseconds (optional).
	MaxLatencyMS *int

	// JSONPath contains JSONPath assertions keyed by expression (api checks).
	JSONPath map[string]JSONPathAssertion
}

// ExtractSpec defines variable extraction from check output.
// For api checks: variableName -> jsonpath expression over the response body.
// For other kinds: variableName -> detail key published by the runner.
type ExtractSpec map[string]string

// CheckSpec describes a single check, its parameters, and its validation
// and extraction rules. Param, header, and body values may contain
// {{var}} placeholders resolved against the merged variable set.
type CheckSpec struct {
	Name string
	Kind CheckKind

	Params  Params
	Headers Headers
	Body    string

	Assert  AssertionsSpec
	Extract ExtractSpec

	// TimeoutS bounds the whole check including retries. Zero means the
	// runner's default deadline applies.
	TimeoutS int
	// RetryS is the wait between retry attempts. Zero means the runner's
	// default interval applies.
	RetryS int
}

// Suite groups ordered checks that together exercise one deployment flow
// (e.g., encrypt, upload, verify ingestion, clean up).
type Suite struct {
	Name string

	// Vars are default variables available to all checks in the suite.
	// Environment vars and extracted runtime vars override them.
	Vars Vars

	Checks []CheckSpec
}

// SuiteRef is a lightweight reference to a suite file on disk.
type SuiteRef struct {
	Name string
	Path string
}
