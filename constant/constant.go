package constant

type AudioFormat string

const (
	FormatOpus AudioFormat = "opus"
	FormatWAV  AudioFormat = "wav"
)

func (f AudioFormat) String() string {
	return string(f)
}

// Extension returns the file extension for the format, including the dot.
func (f AudioFormat) Extension() string {
	return "." + string(f)
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// Reasons recorded in a fallback sidecar when a segment could not be
// delivered to the storage server.
const (
	FallbackReasonUnreachable  = "storage_server_unreachable"
	FallbackReasonUploadFailed = "upload_failed"
)

const (
	// SidecarExtension is the extension of the metadata file stored next
	// to every artifact, same base name.
	SidecarExtension = ".json"

	// DefaultSampleRate is assumed when a sidecar does not carry one.
	DefaultSampleRate = 16000
)
