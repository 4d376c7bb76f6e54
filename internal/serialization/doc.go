// Package serialization reads and writes tensors in the SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}, plus "__metadata__"]
//	  [Tensor data: raw little-endian bytes, tensors in name order]
//
// Writers record a SHA-256 checksum of the data section in the metadata
// under "sha256"; readers verify it when present.
//
// Sampled trajectories and denoiser weights both travel in this format:
//
//	meta, err := serialization.SampleMetadata(runID, cfg)
//	if err := serialization.WriteSample("plan.safetensors", sample, meta); err != nil {
//	    log.Fatal(err)
//	}
//
//	tensors, meta, err := serialization.ReadFile("plan.safetensors")
package serialization
