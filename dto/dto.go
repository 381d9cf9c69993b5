package dto

import "encoding/json"

// SegmentMetadata travels with every uploaded artifact as the `metadata`
// multipart field and is persisted as the sidecar record.
type SegmentMetadata struct {
	Timestamp        string  `json:"timestamp"`
	TimestampUnix    int64   `json:"timestamp_unix"`
	DurationSeconds  float64 `json:"duration_seconds"`
	SampleRate       int     `json:"sample_rate"`
	NumSamples       int     `json:"num_samples"`
	Format           string  `json:"format"`
	OriginalFilename string  `json:"original_filename"`
	FileSizeBytes    int64   `json:"file_size_bytes"`

	// Set only on sidecars written by the local fallback store.
	SavedLocally        bool   `json:"saved_locally,omitempty"`
	LocalFallbackReason string `json:"local_fallback_reason,omitempty"`
}

type UploadResponse struct {
	Status        string `json:"status"`
	Filename      string `json:"filename"`
	SizeBytes     int64  `json:"size_bytes"`
	MetadataSaved bool   `json:"metadata_saved"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	FileCount      int    `json:"file_count"`
	CodecAvailable bool   `json:"codec_available"`
	Timestamp      string `json:"timestamp"`
}

type FileInfo struct {
	Filename  string          `json:"filename"`
	SizeBytes int64           `json:"size_bytes"`
	Modified  string          `json:"modified"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type FileListResponse struct {
	Count int        `json:"count"`
	Files []FileInfo `json:"files"`
}

type DecompressResponse struct {
	Status         string  `json:"status"`
	Input          string  `json:"input"`
	Output         string  `json:"output"`
	InputSize      int64   `json:"input_size"`
	OutputSize     int64   `json:"output_size"`
	ExpansionRatio float64 `json:"expansion_ratio"`
}

// RecorderStatus is an eventually consistent snapshot of a running
// recorder session.
type RecorderStatus struct {
	Running              bool    `json:"running"`
	StorageServerURL     string  `json:"storage_server_url"`
	ServerReachable      bool    `json:"server_reachable"`
	SegmentSeconds       int     `json:"segment_seconds"`
	SegmentsProcessed    uint64  `json:"segments_processed"`
	Uploaded             uint64  `json:"uploaded"`
	LocalFallback        uint64  `json:"local_fallback"`
	TotalDurationSeconds float64 `json:"total_duration"`
	BufferSeconds        float64 `json:"buffer_seconds"`
}
