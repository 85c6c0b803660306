package onnxscore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// Defaults for the prediction network geometry when the config leaves
// it unset.
const (
	DefaultPredLayers = 1
	DefaultPredHidden = 320
)

// Config locates the exported model graphs and fixes the prediction
// network geometry the recurrent state tensors are shaped with.
type Config struct {
	EncoderPath string
	DecoderPath string
	JointPath   string

	// PredLayers and PredHidden are the prediction network's LSTM
	// layer count and hidden size. Zero selects the defaults.
	PredLayers int
	PredHidden int

	// IntraOpThreads caps the runtime's intra-op thread pool when
	// positive.
	IntraOpThreads int
}

func (c Config) withDefaults() Config {
	if c.PredLayers == 0 {
		c.PredLayers = DefaultPredLayers
	}
	if c.PredHidden == 0 {
		c.PredHidden = DefaultPredHidden
	}
	return c
}

// Initialize loads the native ONNX Runtime library, from libraryPath
// when non-empty, otherwise from the platform default location. Safe
// to call more than once.
func Initialize(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnxscore: initialize runtime: %w", err)
	}
	return nil
}

// Shutdown releases the native runtime. Call after every Engine is
// closed.
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("onnxscore: shut down runtime: %w", err)
	}
	return nil
}

// Engine runs the three exported TDT graphs and exposes them as the
// decoder's scoring surface. One Engine serves one decode at a time;
// the searches call it synchronously.
type Engine struct {
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession
	joint   *ort.DynamicAdvancedSession

	layers int
	hidden int
}

// NewEngine opens one session per model graph. The runtime must have
// been initialized first.
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.PredLayers < 1 || cfg.PredHidden < 1 {
		return nil, fmt.Errorf("%w: prediction network needs at least one layer and one unit", ErrConfig)
	}
	for _, path := range []string{cfg.EncoderPath, cfg.DecoderPath, cfg.JointPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
	}
	if !ort.IsInitialized() {
		return nil, ErrNotInitialized
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnxscore: session options: %w", err)
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("onnxscore: session options: %w", err)
		}
	}

	e := &Engine{layers: cfg.PredLayers, hidden: cfg.PredHidden}
	if e.encoder, err = openSession(cfg.EncoderPath, options, 2, 2); err != nil {
		return nil, err
	}
	if e.decoder, err = openSession(cfg.DecoderPath, options, 3, 3); err != nil {
		e.encoder.Destroy()
		return nil, err
	}
	if e.joint, err = openSession(cfg.JointPath, options, 2, 1); err != nil {
		e.encoder.Destroy()
		e.decoder.Destroy()
		return nil, err
	}

	log.Debug().
		Str("encoder", filepath.Base(cfg.EncoderPath)).
		Int("pred_layers", e.layers).
		Int("pred_hidden", e.hidden).
		Msg("onnx sessions ready")
	return e, nil
}

// Close releases the engine's sessions. The engine is unusable after.
func (e *Engine) Close() {
	if e.encoder != nil {
		e.encoder.Destroy()
		e.encoder = nil
	}
	if e.decoder != nil {
		e.decoder.Destroy()
		e.decoder = nil
	}
	if e.joint != nil {
		e.joint.Destroy()
		e.joint = nil
	}
}

// Encode runs the acoustic encoder over frame-major features [T][F]
// and returns the encoded frames [T'][E], truncated to the length the
// encoder reports.
func (e *Engine) Encode(features [][]float32) ([][]float32, error) {
	flat, dim, err := flattenFeatures(features)
	if err != nil {
		return nil, err
	}
	frames := len(features)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dim), int64(frames)), flat)
	if err != nil {
		return nil, fmt.Errorf("onnxscore: feature tensor: %w", err)
	}
	defer inputTensor.Destroy()

	lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(frames)})
	if err != nil {
		return nil, fmt.Errorf("onnxscore: length tensor: %w", err)
	}
	defer lengthTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := e.encoder.Run([]ort.Value{inputTensor, lengthTensor}, outputs); err != nil {
		return nil, fmt.Errorf("onnxscore: encoder run: %w", err)
	}
	defer destroyAll(outputs)

	enc, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: encoder output is not a float32 tensor", ErrShape)
	}
	shape := enc.GetShape()
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("%w: encoder output %v, want [1,E,T]", ErrShape, shape)
	}
	hidden, steps := int(shape[1]), int(shape[2])

	valid := steps
	if lenT, ok := outputs[1].(*ort.Tensor[int64]); ok {
		if data := lenT.GetData(); len(data) > 0 && int(data[0]) < valid {
			valid = int(data[0])
		}
	}
	return transposeFrames(enc.GetData(), hidden, steps, valid), nil
}

// flattenFeatures lays frame-major features out feature-major for the
// encoder tensor and reports the feature dimension.
func flattenFeatures(features [][]float32) ([]float32, int, error) {
	if len(features) == 0 {
		return nil, 0, fmt.Errorf("%w: no frames", ErrBadInput)
	}
	dim := len(features[0])
	if dim == 0 {
		return nil, 0, fmt.Errorf("%w: empty feature vector", ErrBadInput)
	}
	flat := make([]float32, dim*len(features))
	for t, row := range features {
		if len(row) != dim {
			return nil, 0, fmt.Errorf("%w: frame %d has %d features, want %d", ErrBadInput, t, len(row), dim)
		}
		for f, v := range row {
			flat[f*len(features)+t] = v
		}
	}
	return flat, dim, nil
}

// transposeFrames turns the encoder's feature-major output back into
// frame-major rows, keeping the first valid frames.
func transposeFrames(data []float32, hidden, steps, valid int) [][]float32 {
	frames := make([][]float32, valid)
	for t := 0; t < valid; t++ {
		row := make([]float32, hidden)
		for h := 0; h < hidden; h++ {
			row[h] = data[h*steps+t]
		}
		frames[t] = row
	}
	return frames
}

// ModelInfo describes one ONNX graph's external interface.
type ModelInfo struct {
	Inputs  []TensorInfo
	Outputs []TensorInfo
}

// TensorInfo is one graph input or output.
type TensorInfo struct {
	Name  string
	Shape []int64
	Type  string
}

// Inspect reports the inputs and outputs of the model at path without
// creating a session. The runtime must have been initialized first.
func Inspect(path string) (*ModelInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}
	if !ort.IsInitialized() {
		return nil, ErrNotInitialized
	}
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnxscore: inspect %s: %w", filepath.Base(path), err)
	}
	return &ModelInfo{Inputs: tensorInfos(inputs), Outputs: tensorInfos(outputs)}, nil
}

func tensorInfos(info []ort.InputOutputInfo) []TensorInfo {
	out := make([]TensorInfo, len(info))
	for i, inf := range info {
		out[i] = TensorInfo{
			Name:  inf.Name,
			Shape: append([]int64(nil), inf.Dimensions...),
			Type:  inf.DataType.String(),
		}
	}
	return out
}

// openSession discovers a graph's tensor names and opens a dynamic
// session over them, enforcing the expected arity.
func openSession(path string, options *ort.SessionOptions, wantIn, wantOut int) (*ort.DynamicAdvancedSession, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnxscore: inspect %s: %w", filepath.Base(path), err)
	}
	if len(inputs) != wantIn || len(outputs) != wantOut {
		return nil, fmt.Errorf("%w: %s has %d inputs and %d outputs, want %d and %d",
			ErrModelIO, filepath.Base(path), len(inputs), len(outputs), wantIn, wantOut)
	}
	session, err := ort.NewDynamicAdvancedSession(path, names(inputs), names(outputs), options)
	if err != nil {
		return nil, fmt.Errorf("onnxscore: open %s: %w", filepath.Base(path), err)
	}
	return session, nil
}

func names(info []ort.InputOutputInfo) []string {
	out := make([]string, len(info))
	for i, inf := range info {
		out[i] = inf.Name
	}
	return out
}

func destroyAll(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}
