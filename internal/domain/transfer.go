package domain

// DownloadProgress represents the current state of a download
type DownloadProgress struct {
	TotalBytes int64   // Total size in bytes (0 if unknown)
	Downloaded int64   // Bytes downloaded so far
	Percentage float64 // Completion percentage (0-100)
}

// ProgressFunc is called periodically during download with progress updates
type ProgressFunc func(DownloadProgress)

// DownloadResult contains the outcome of a download
type DownloadResult struct {
	Path     string // Final file path
	Size     int64  // Bytes downloaded
	Checksum string // MD5 hash of downloaded file
	FileName string // Server-suggested name from Content-Disposition, if any
}

// ProbeResult holds the response headers of a HEAD request
type ProbeResult struct {
	StatusCode    int
	ContentType   string
	ContentLength int64 // -1 when the server did not send it
	FileName      string
}
