package eval

import (
	"fmt"
	"os"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"gorgonia.org/tensor"
)

// ONNXModel runs an exported value network through the gorgonnx backend.
// The graph is built with a fixed input shape of (1, 64), so a batch is
// fed one row at a time. It is not safe for concurrent use; wrap it in a
// Neural.
type ONNXModel struct {
	backend *gorgonnx.Graph
	model   *onnx.Model
}

func LoadONNX(path string) (*ONNXModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	backend := gorgonnx.NewGraph()
	model := onnx.NewModel(backend)
	if err := model.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("unmarshal onnx model %s: %w", path, err)
	}
	return &ONNXModel{backend: backend, model: model}, nil
}

func (m *ONNXModel) Predict(inputs []float32, n int) ([]float32, error) {
	if len(inputs) != n*InputSize {
		return nil, fmt.Errorf("onnx: %d inputs for %d positions", len(inputs), n)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		row := make([]float32, InputSize)
		copy(row, inputs[i*InputSize:(i+1)*InputSize])
		t := tensor.New(tensor.WithShape(1, InputSize), tensor.WithBacking(row))
		if err := m.model.SetInput(0, t); err != nil {
			return nil, err
		}
		if err := m.backend.Run(); err != nil {
			return nil, fmt.Errorf("onnx run: %w", err)
		}
		outputs, err := m.model.GetOutputTensors()
		if err != nil {
			return nil, err
		}
		if len(outputs) == 0 {
			return nil, fmt.Errorf("onnx: model has no outputs")
		}
		switch d := outputs[0].Data().(type) {
		case []float32:
			if len(d) == 0 {
				return nil, fmt.Errorf("onnx: empty output tensor")
			}
			out[i] = d[0]
		case float32:
			out[i] = d
		default:
			return nil, fmt.Errorf("onnx: unexpected output type %T", d)
		}
	}
	return out, nil
}
