package asr

// ResolveComputeType downgrades a CPU request for float16 or
// int8_float16 to int8, since most CPU kernels lack a float16 path. GPU
// requests and explicit int8 pass through unchanged.
func ResolveComputeType(device Device, compute ComputeType) ComputeType {
	if device == DeviceCPU && (compute == ComputeFloat16 || compute == ComputeInt8Float16) {
		return ComputeInt8
	}
	return compute
}
