// Package converter shells out to LibreOffice in headless mode to turn PDFs
// (and the HTML report) into DOCX downloads.
package converter

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LibreOffice runs headless conversions with bounded concurrency.
type LibreOffice struct {
	binary    string
	timeout   time.Duration
	semaphore chan struct{}
}

// Job describes one conversion: input file, output file (with the desired
// extension) and an optional per-job timeout.
type Job struct {
	InputPath  string
	OutputPath string
	Format     string // target extension without dot, e.g. "docx"
	Timeout    time.Duration
}

// Result reports the outcome of a conversion.
type Result struct {
	Success    bool
	OutputPath string
	Error      string
	Duration   time.Duration
}

// New creates a converter. maxWorkers caps concurrent LibreOffice processes;
// each conversion is CPU and memory hungry.
func New(binary string, maxWorkers int, timeout time.Duration) *LibreOffice {
	if binary == "" {
		binary = "libreoffice"
	}
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &LibreOffice{
		binary:    binary,
		timeout:   timeout,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// CheckInstallation verifies the LibreOffice binary is on PATH.
func (l *LibreOffice) CheckInstallation() error {
	cmd := exec.Command(l.binary, "--version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("LibreOffice not found in PATH: %w", err)
	}
	log.Info().Str("version", strings.TrimSpace(string(output))).Msg("LibreOffice found")
	return nil
}

// Convert runs one conversion job.
func (l *LibreOffice) Convert(job Job) Result {
	startTime := time.Now()

	l.semaphore <- struct{}{}
	defer func() { <-l.semaphore }()

	log.Info().Str("input", job.InputPath).Str("format", job.Format).Msg("starting conversion")

	if err := l.validateInput(job.InputPath); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("input validation failed: %v", err), Duration: time.Since(startTime)}
	}

	// Unique profile dir so parallel soffice processes don't fight over the lock.
	profileDir := filepath.Join(os.TempDir(), fmt.Sprintf("libreoffice_profile_%s", uuid.New().String()))
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to create profile directory: %v", err), Duration: time.Since(startTime)}
	}
	defer os.RemoveAll(profileDir)

	outputDir := filepath.Dir(job.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to create output directory: %v", err), Duration: time.Since(startTime)}
	}

	cmd := exec.Command(
		l.binary,
		fmt.Sprintf("-env:UserInstallation=file://%s", profileDir),
		"--headless",
		"--convert-to", job.Format,
		"--outdir", outputDir,
		job.InputPath,
	)

	timeout := job.Timeout
	if timeout == 0 {
		timeout = l.timeout
	}

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("LibreOffice command")

	done := make(chan error, 1)
	go func() {
		done <- cmd.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			return Result{Success: false, Error: fmt.Sprintf("conversion failed: %v", err), Duration: time.Since(startTime)}
		}
	case <-time.After(timeout):
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return Result{Success: false, Error: fmt.Sprintf("conversion timeout after %v", timeout), Duration: time.Since(startTime)}
	}

	// LibreOffice names the output after the input; rename when the job wants
	// a different stem.
	expectedOutput := l.expectedOutputPath(job.InputPath, outputDir, job.Format)
	actualOutput := job.OutputPath
	if expectedOutput != actualOutput {
		if _, err := os.Stat(expectedOutput); err == nil {
			if err := os.Rename(expectedOutput, actualOutput); err != nil {
				log.Warn().Err(err).Str("from", expectedOutput).Str("to", actualOutput).Msg("failed to rename")
				actualOutput = expectedOutput
			}
		}
	}

	if _, err := os.Stat(actualOutput); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("output file not created: %v", err), Duration: time.Since(startTime)}
	}

	log.Info().Str("output", actualOutput).Dur("duration", time.Since(startTime)).Msg("conversion successful")

	return Result{Success: true, OutputPath: actualOutput, Duration: time.Since(startTime)}
}

func (l *LibreOffice) expectedOutputPath(inputPath, outputDir, format string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"."+strings.TrimPrefix(format, "."))
}

func (l *LibreOffice) validateInput(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file")
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("file not readable: %w", err)
	}
	file.Close()
	return nil
}
