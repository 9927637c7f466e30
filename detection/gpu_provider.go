package detection

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// GPUProvider runs the whale detector with the OpenCV CUDA backend.
type GPUProvider struct {
	net        gocv.Net
	classNames []string
	opts       ModelOptions
	mu         sync.Mutex
}

// Initialize loads the network, requesting the CUDA backend.
func (gp *GPUProvider) Initialize(opts ModelOptions) error {
	gp.net = gocv.ReadNet(opts.WeightsPath, opts.ConfigPath)
	if gp.net.Empty() {
		return fmt.Errorf("failed to load detector network from %s and %s", opts.WeightsPath, opts.ConfigPath)
	}

	gp.net.SetPreferableBackend(gocv.NetBackendCUDA)
	gp.net.SetPreferableTarget(gocv.NetTargetCUDA)

	names, err := loadNames(opts.NamesPath)
	if err != nil {
		return err
	}
	gp.classNames = names
	gp.opts = opts

	return nil
}

// Detect performs object detection on a frame using the GPU.
func (gp *GPUProvider) Detect(frame gocv.Mat) (*Result, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0,
		image.Pt(gp.opts.InputSize, gp.opts.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	gp.net.SetInput(blob, "")

	output := gp.net.Forward("")
	defer output.Close()

	return decodeOutput(output, frame, gp.opts, len(gp.classNames)), nil
}

// Close releases the network.
func (gp *GPUProvider) Close() error {
	gp.net.Close()
	return nil
}

// GetProviderInfo returns information about the GPU provider.
func (gp *GPUProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:    "GPU",
		Backend: "OpenCV CUDA",
		Device:  "NVIDIA GPU",
	}
}
