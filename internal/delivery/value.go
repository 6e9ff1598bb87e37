package delivery

import (
	"net/url"
	"path/filepath"
)

// FileRef describes one written artifact for inclusion in a structured
// deliverable value.
type FileRef struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	URI      string `json:"uri"`
}

func fileRef(path string) FileRef {
	return FileRef{
		Filename: filepath.Base(path),
		Path:     path,
		URI:      (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(),
	}
}

// NeedsInfoValue is the structured deliverable a handler returns when the
// buyer must supply missing fields before work can proceed.
type NeedsInfoValue struct {
	Status       string    `json:"status"`
	JobID        int64     `json:"jobId"`
	Offering     string    `json:"offering"`
	LocalPath    string    `json:"localPath"`
	FilesWritten []string  `json:"filesWritten"`
	FileRefs     []FileRef `json:"fileRefs"`
	IntakeFile   string    `json:"intakeFile"`
	IntakePath   string    `json:"intakePath"`
	IntakeURI    string    `json:"intakeUri"`
}

// BuildNeedsInfoValue constructs a NeedsInfoValue referencing intakePath as
// the primary artifact a buyer should respond to.
func BuildNeedsInfoValue(jobID int64, offering, jobDir, intakePath string, missing []string) NeedsInfoValue {
	ref := fileRef(intakePath)
	return NeedsInfoValue{
		Status:       "needs_info",
		JobID:        jobID,
		Offering:     offering,
		LocalPath:    jobDir,
		FilesWritten: []string{ref.Filename},
		FileRefs:     []FileRef{ref},
		IntakeFile:   ref.Filename,
		IntakePath:   ref.Path,
		IntakeURI:    ref.URI,
	}
}

// WrittenValue is the structured deliverable a handler returns once a
// report (or other deliverable artifact) has been written to disk.
type WrittenValue struct {
	Status       string    `json:"status"`
	JobID        int64     `json:"jobId"`
	Offering     string    `json:"offering"`
	LocalPath    string    `json:"localPath"`
	FilesWritten []string  `json:"filesWritten"`
	FileRefs     []FileRef `json:"fileRefs"`
	ReportFile   string    `json:"reportFile"`
	ReportPath   string    `json:"reportPath"`
	ReportURI    string    `json:"reportUri"`
}

// BuildWrittenValue constructs a WrittenValue referencing reportPath as the
// primary deliverable artifact, alongside any additional written files.
func BuildWrittenValue(jobID int64, offering, jobDir, reportPath string, additional []string) WrittenValue {
	ref := fileRef(reportPath)
	filesWritten := []string{ref.Filename}
	fileRefs := []FileRef{ref}
	for _, p := range additional {
		r := fileRef(p)
		filesWritten = append(filesWritten, r.Filename)
		fileRefs = append(fileRefs, r)
	}
	return WrittenValue{
		Status:       "written",
		JobID:        jobID,
		Offering:     offering,
		LocalPath:    jobDir,
		FilesWritten: filesWritten,
		FileRefs:     fileRefs,
		ReportFile:   ref.Filename,
		ReportPath:   ref.Path,
		ReportURI:    ref.URI,
	}
}
