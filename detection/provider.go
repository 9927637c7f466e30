package detection

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// Provider is the inference backend behind a Tracker. Detect holds an
// internal lock, so concurrent sessions sharing one provider do not
// interleave forward passes.
type Provider interface {
	Initialize(opts ModelOptions) error
	Detect(frame gocv.Mat) (*Result, error)
	Close() error
	GetProviderInfo() ProviderInfo
}

// ModelOptions carries the network files and decode thresholds.
type ModelOptions struct {
	WeightsPath   string
	ConfigPath    string
	NamesPath     string
	InputSize     int
	ConfThreshold float64
	NMSThreshold  float64
}

// ProviderInfo describes the active inference backend.
type ProviderInfo struct {
	Type     string // "GPU" or "CPU"
	Backend  string
	Device   string
	InitTime time.Duration
}

// ProviderManager selects the best available provider, preferring CUDA and
// falling back to the CPU backend when the GPU cannot be initialized or
// fails its test inference.
type ProviderManager struct {
	currentProvider Provider
	providerInfo    ProviderInfo
}

func NewProviderManager() *ProviderManager {
	return &ProviderManager{}
}

// Initialize performs auto-detection and initializes the best available provider.
func (pm *ProviderManager) Initialize(opts ModelOptions) error {
	if hasGPUCapability() {
		gpuProvider := &GPUProvider{}

		startTime := time.Now()
		if err := gpuProvider.Initialize(opts); err == nil {
			if testProvider(gpuProvider, opts.InputSize) {
				pm.currentProvider = gpuProvider
				pm.providerInfo = gpuProvider.GetProviderInfo()
				pm.providerInfo.InitTime = time.Since(startTime)
				slog.Info("inference provider ready", "type", "GPU", "init", pm.providerInfo.InitTime)
				return nil
			}
			slog.Warn("GPU test inference failed, falling back to CPU")
			gpuProvider.Close()
		} else {
			slog.Warn("GPU initialization failed, falling back to CPU", "error", err)
		}
	}

	cpuProvider := &CPUProvider{}
	startTime := time.Now()
	if err := cpuProvider.Initialize(opts); err != nil {
		return fmt.Errorf("both GPU and CPU providers failed: %w", err)
	}

	pm.currentProvider = cpuProvider
	pm.providerInfo = cpuProvider.GetProviderInfo()
	pm.providerInfo.InitTime = time.Since(startTime)
	slog.Info("inference provider ready", "type", "CPU", "init", pm.providerInfo.InitTime)

	return nil
}

// GetProvider returns the current active provider.
func (pm *ProviderManager) GetProvider() Provider {
	return pm.currentProvider
}

// GetProviderInfo returns information about the current provider.
func (pm *ProviderManager) GetProviderInfo() ProviderInfo {
	return pm.providerInfo
}

// Close closes the current provider.
func (pm *ProviderManager) Close() error {
	if pm.currentProvider != nil {
		return pm.currentProvider.Close()
	}
	return nil
}

// hasGPUCapability checks whether CUDA inference is worth attempting.
func hasGPUCapability() bool {
	if !hasNVIDIAGPU() {
		return false
	}
	return hasNVIDIADriver()
}

func hasNVIDIAGPU() bool {
	output, err := exec.Command("lspci").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(output)), "nvidia")
}

func hasNVIDIADriver() bool {
	cmd := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err := cmd.Run(); err != nil {
		return false
	}

	matches, _ := filepath.Glob("/dev/nvidia*")
	return len(matches) > 0
}

// testProvider performs one inference on a blank frame to verify the
// provider actually works before committing to it.
func testProvider(provider Provider, inputSize int) bool {
	testFrame := gocv.NewMatWithSize(inputSize, inputSize, gocv.MatTypeCV8UC3)
	defer testFrame.Close()

	_, err := provider.Detect(testFrame)
	return err == nil
}
