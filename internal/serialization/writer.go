package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/technodrome/diffuser/internal/tensor"
)

// Write encodes tensors and metadata to w. Tensor data is laid out in name
// order and the data checksum is added to the metadata.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		Metadata: make(map[string]string, len(metadata)+1),
		Tensors:  make(map[string]TensorInfo, len(tensors)),
	}
	for k, v := range metadata {
		header.Metadata[k] = v
	}

	var data bytes.Buffer
	for _, name := range names {
		raw := tensors[name]
		if raw == nil {
			return errors.Wrapf(ErrTensorNotFound, "nil tensor %s", name)
		}
		dt, err := dtypeOf(raw.DType())
		if err != nil {
			return errors.Wrapf(err, "tensor %s", name)
		}
		start := int64(data.Len())
		data.Write(raw.Data())
		header.Tensors[name] = TensorInfo{
			DType:       dt,
			Shape:       raw.Shape().Clone(),
			DataOffsets: [2]int64{start, int64(data.Len())},
		}
	}

	sum := ComputeChecksum(data.Bytes())
	header.Metadata[MetadataChecksum] = hex.EncodeToString(sum[:])

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if _, err := data.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}

// WriteFile writes tensors and metadata to path.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: output path is chosen by the caller
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	return Write(file, tensors, metadata)
}
