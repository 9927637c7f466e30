package detection

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// CPUProvider runs the whale detector with the OpenCV CPU backend.
type CPUProvider struct {
	net        gocv.Net
	classNames []string
	opts       ModelOptions
	mu         sync.Mutex
}

// Initialize loads the network and class names.
func (cp *CPUProvider) Initialize(opts ModelOptions) error {
	cp.net = gocv.ReadNet(opts.WeightsPath, opts.ConfigPath)
	if cp.net.Empty() {
		return fmt.Errorf("failed to load detector network from %s and %s", opts.WeightsPath, opts.ConfigPath)
	}

	cp.net.SetPreferableBackend(gocv.NetBackendDefault)
	cp.net.SetPreferableTarget(gocv.NetTargetCPU)

	names, err := loadNames(opts.NamesPath)
	if err != nil {
		return err
	}
	cp.classNames = names
	cp.opts = opts

	return nil
}

// Detect performs object detection on a frame using the CPU.
func (cp *CPUProvider) Detect(frame gocv.Mat) (*Result, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0,
		image.Pt(cp.opts.InputSize, cp.opts.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	cp.net.SetInput(blob, "")

	output := cp.net.Forward("")
	defer output.Close()

	return decodeOutput(output, frame, cp.opts, len(cp.classNames)), nil
}

// Close releases the network.
func (cp *CPUProvider) Close() error {
	cp.net.Close()
	return nil
}

// GetProviderInfo returns information about the CPU provider.
func (cp *CPUProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:    "CPU",
		Backend: "OpenCV CPU",
		Device:  "CPU",
	}
}
