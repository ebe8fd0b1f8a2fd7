package embedding

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
)

// Config locates the model files for the ONNX embedder.
type Config struct {
	// ModelPath is the BERT-style ONNX model exporting input_ids,
	// attention_mask, and token_type_ids.
	ModelPath string
	// VocabPath is the WordPiece vocab.txt matching the model.
	VocabPath string
	// LibraryPath is the ONNX Runtime shared library. Defaults to
	// libonnxruntime.so next to the model.
	LibraryPath string
	// MaxSeqLen caps tokenized input length. Defaults to 128.
	MaxSeqLen int
}

// ortInit guards process-wide ONNX Runtime initialization.
var ortInit struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortInit.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortInit.err = ort.InitializeEnvironment()
	})
	return ortInit.err
}

// BERTEmbedder runs sentence embedding inference with a local BERT-style
// ONNX model: WordPiece tokenize, encoder forward pass, mean pooling over
// the token dimension.
type BERTEmbedder struct {
	session    *ort.DynamicAdvancedSession
	tok        *wordpieceTokenizer
	outputName string
	version    string
	hiddenDim  int64
	maxSeqLen  int

	// The ONNX session is not safe for concurrent Run calls.
	mu sync.Mutex
}

// bertInputs are the tensor names every supported model must export, in the
// order they are fed to the session.
var bertInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// NewBERTEmbedder loads the model and vocabulary and validates the model's
// tensor layout.
func NewBERTEmbedder(cfg Config) (*BERTEmbedder, error) {
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 128
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("embedding: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: read model info: %w", err)
	}

	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	for _, name := range bertInputs {
		if !have[name] {
			return nil, fmt.Errorf("embedding: model missing input %q", name)
		}
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("embedding: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("embedding: expected [batch, seq, hidden] output, got %v", dims)
	}

	tok, err := newWordpieceTokenizer(cfg.VocabPath)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("embedding: session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	_ = opts.SetIntraOpNumThreads(2)
	_ = opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, bertInputs, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("embedding: create session: %w", err)
	}

	return &BERTEmbedder{
		session:    session,
		tok:        tok,
		outputName: outputs[0].Name,
		version:    fmt.Sprintf("%s@%d", filepath.Base(cfg.ModelPath), dims[2]),
		hiddenDim:  dims[2],
		maxSeqLen:  cfg.MaxSeqLen,
	}, nil
}

// Dim returns the embedding dimensionality.
func (e *BERTEmbedder) Dim() int {
	return int(e.hiddenDim)
}

// Version identifies the model so vector files computed against a different
// model are rejected.
func (e *BERTEmbedder) Version() string {
	return e.version
}

// Embed produces the mean-pooled sentence vector for text. The inference
// itself cannot be interrupted, so on context expiry Embed returns
// immediately and lets the in-flight run finish on its own goroutine.
func (e *BERTEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, err)
	}

	ids := e.tok.encode(text, e.maxSeqLen)

	type inference struct {
		vec []float32
		err error
	}
	done := make(chan inference, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		hidden, err := e.infer(ids)
		if err != nil {
			done <- inference{err: err}
			return
		}
		done <- inference{vec: meanPool(hidden, int64(len(ids)), e.hiddenDim)}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrEmbeddingUnavailable, r.err)
		}
		return r.vec, nil
	}
}

// infer runs a single-sequence forward pass and returns the flat
// [seqLen * hiddenDim] hidden states.
func (e *BERTEmbedder) infer(ids []int64) ([]float32, error) {
	seqLen := int64(len(ids))
	shape := ort.NewShape(1, seqLen)

	// A single unpadded sequence: the attention mask is all ones and the
	// segment IDs all zeros.
	mask := make([]int64, seqLen)
	for i := range mask {
		mask[i] = 1
	}
	segments := make([]int64, seqLen)

	tIDs, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer func() { _ = tIDs.Destroy() }()

	tMask, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer func() { _ = tMask.Destroy() }()

	tSegments, err := ort.NewTensor(shape, segments)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer func() { _ = tSegments.Destroy() }()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, e.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer func() { _ = tOut.Destroy() }()

	if err := e.session.Run([]ort.Value{tIDs, tMask, tSegments}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	src := tOut.GetData()
	hidden := make([]float32, len(src))
	copy(hidden, src)
	return hidden, nil
}

// meanPool averages hidden states across the token positions of a single
// unpadded sequence.
func meanPool(hidden []float32, seqLen, dim int64) []float32 {
	out := make([]float32, dim)
	if seqLen == 0 {
		return out
	}
	for s := int64(0); s < seqLen; s++ {
		off := s * dim
		for d := int64(0); d < dim; d++ {
			out[d] += hidden[off+d]
		}
	}
	n := float32(seqLen)
	for d := range out {
		out[d] /= n
	}
	return out
}

// Close releases ONNX Runtime resources.
func (e *BERTEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
