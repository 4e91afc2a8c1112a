//go:build onnx

package onnx

/*
#cgo LDFLAGS: -lonnxruntime
#include <onnxruntime_c_api.h>
#include <stdlib.h>
#include <string.h>

// Helper: get the ORT API pointer.
static const OrtApi* ort_api() {
    return OrtGetApiBase()->GetApi(ORT_API_VERSION);
}

// Helper: create environment.
static OrtStatus* ort_create_env(const OrtApi* api, const char* name, OrtEnv** out) {
    return api->CreateEnv(ORT_LOGGING_LEVEL_WARNING, name, out);
}

// Helper: create session options.
static OrtStatus* ort_create_session_options(const OrtApi* api, OrtSessionOptions** out) {
    return api->CreateSessionOptions(out);
}

// Helper: create session from memory.
static OrtStatus* ort_create_session_from_memory(const OrtApi* api, OrtEnv* env,
    const void* model_data, size_t model_data_len, OrtSessionOptions* opts, OrtSession** out) {
    return api->CreateSessionFromArray(env, model_data, model_data_len, opts, out);
}

// Helper: create tensor with float data.
static OrtStatus* ort_create_tensor_float(const OrtApi* api, OrtMemoryInfo* info,
    float* data, size_t data_len, int64_t* shape, size_t shape_len, OrtValue** out) {
    return api->CreateTensorWithDataAsOrtValue(info, data, data_len * sizeof(float),
        shape, shape_len, ONNX_TENSOR_ELEMENT_DATA_TYPE_FLOAT, out);
}

// Helper: create CPU memory info.
static OrtStatus* ort_create_cpu_memory_info(const OrtApi* api, OrtMemoryInfo** out) {
    return api->CreateCpuMemoryInfo(OrtArenaAllocator, OrtMemTypeDefault, out);
}

// Helper: run session.
static OrtStatus* ort_run(const OrtApi* api, OrtSession* session,
    const char** input_names, const OrtValue* const* inputs, size_t num_inputs,
    const char** output_names, size_t num_outputs, OrtValue** outputs) {
    return api->Run(session, NULL, input_names, inputs, num_inputs,
        output_names, num_outputs, outputs);
}

// Helper: get tensor float data.
static OrtStatus* ort_get_tensor_float_data(const OrtApi* api, OrtValue* value, float** out) {
    return api->GetTensorMutableData(value, (void**)out);
}

// Helper: get tensor shape info.
static OrtStatus* ort_get_tensor_shape(const OrtApi* api, OrtValue* value,
    int64_t* shape, size_t shape_len) {
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* status = api->GetTensorTypeAndShape(value, &info);
    if (status) return status;
    status = api->GetDimensions(info, shape, shape_len);
    api->ReleaseTensorTypeAndShapeInfo(info);
    return status;
}

// Helper: get tensor shape dimension count.
static OrtStatus* ort_get_tensor_ndim(const OrtApi* api, OrtValue* value, size_t* ndim) {
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* status = api->GetTensorTypeAndShape(value, &info);
    if (status) return status;
    status = api->GetDimensionsCount(info, ndim);
    api->ReleaseTensorTypeAndShapeInfo(info);
    return status;
}

// Helper: get error message.
static const char* ort_error_message(const OrtApi* api, OrtStatus* status) {
    return api->GetErrorMessage(status);
}

// Helper: release status.
static void ort_release_status(const OrtApi* api, OrtStatus* status) {
    api->ReleaseStatus(status);
}

// Release helpers.
static void ort_release_session(const OrtApi* api, OrtSession* s) { api->ReleaseSession(s); }
static void ort_release_session_options(const OrtApi* api, OrtSessionOptions* o) { api->ReleaseSessionOptions(o); }
static void ort_release_memory_info(const OrtApi* api, OrtMemoryInfo* i) { api->ReleaseMemoryInfo(i); }
static void ort_release_value(const OrtApi* api, OrtValue* v) { api->ReleaseValue(v); }
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

func api() *C.OrtApi {
	return C.ort_api()
}

func checkStatus(status *C.OrtStatus) error {
	if status == nil {
		return nil
	}
	msg := C.GoString(C.ort_error_message(api(), status))
	C.ort_release_status(api(), status)
	return fmt.Errorf("onnx: %s", msg)
}

// The runtime environment is process-wide and never released.
var (
	envOnce sync.Once
	env     *C.OrtEnv
	envErr  error
)

func sharedEnv() (*C.OrtEnv, error) {
	envOnce.Do(func() {
		name := C.CString("amcompute")
		defer C.free(unsafe.Pointer(name))
		envErr = checkStatus(C.ort_create_env(api(), name, &env))
	})
	return env, envErr
}

// session is a loaded model.
type session struct {
	s     *C.OrtSession
	model []byte // referenced by the runtime for the session's lifetime
}

func newSession(model []byte) (*session, error) {
	if len(model) == 0 {
		return nil, fmt.Errorf("onnx: empty model")
	}
	e, err := sharedEnv()
	if err != nil {
		return nil, err
	}
	var opts *C.OrtSessionOptions
	if err := checkStatus(C.ort_create_session_options(api(), &opts)); err != nil {
		return nil, err
	}
	defer C.ort_release_session_options(api(), opts)

	s := &session{model: model}
	if err := checkStatus(C.ort_create_session_from_memory(api(), e,
		unsafe.Pointer(&model[0]), C.size_t(len(model)), opts, &s.s)); err != nil {
		return nil, err
	}
	runtime.SetFinalizer(s, (*session).close)
	return s, nil
}

func (s *session) close() {
	if s.s != nil {
		C.ort_release_session(api(), s.s)
		s.s = nil
		runtime.SetFinalizer(s, nil)
	}
}

// tensor is a named float32 input or output.
type tensor struct {
	name  string
	shape []int64
	data  []float32
}

// run feeds inputs to the session and returns the named outputs. Input
// data is borrowed by the runtime only for the duration of the call.
func (s *session) run(inputs []tensor, outputs []string) ([]tensor, error) {
	var mem *C.OrtMemoryInfo
	if err := checkStatus(C.ort_create_cpu_memory_info(api(), &mem)); err != nil {
		return nil, err
	}
	defer C.ort_release_memory_info(api(), mem)

	var pinner runtime.Pinner
	defer pinner.Unpin()

	inNames := make([]*C.char, len(inputs))
	inValues := make([]*C.OrtValue, len(inputs))
	defer func() {
		for i := range inputs {
			C.free(unsafe.Pointer(inNames[i]))
			if inValues[i] != nil {
				C.ort_release_value(api(), inValues[i])
			}
		}
	}()
	for i, in := range inputs {
		inNames[i] = C.CString(in.name)
		if len(in.data) == 0 || len(in.shape) == 0 {
			return nil, fmt.Errorf("onnx: input %q is empty", in.name)
		}
		pinner.Pin(&in.data[0])
		pinner.Pin(&in.shape[0])
		if err := checkStatus(C.ort_create_tensor_float(api(), mem,
			(*C.float)(unsafe.Pointer(&in.data[0])), C.size_t(len(in.data)),
			(*C.int64_t)(unsafe.Pointer(&in.shape[0])), C.size_t(len(in.shape)),
			&inValues[i])); err != nil {
			return nil, fmt.Errorf("onnx: input %q: %w", in.name, err)
		}
	}

	outNames := make([]*C.char, len(outputs))
	for i, name := range outputs {
		outNames[i] = C.CString(name)
	}
	defer func() {
		for _, p := range outNames {
			C.free(unsafe.Pointer(p))
		}
	}()
	outValues := make([]*C.OrtValue, len(outputs))

	if err := checkStatus(C.ort_run(api(), s.s,
		&inNames[0], &inValues[0], C.size_t(len(inputs)),
		&outNames[0], C.size_t(len(outputs)), &outValues[0])); err != nil {
		return nil, err
	}
	defer func() {
		for _, v := range outValues {
			C.ort_release_value(api(), v)
		}
	}()

	res := make([]tensor, len(outputs))
	for i, v := range outValues {
		t, err := readTensor(v)
		if err != nil {
			return nil, fmt.Errorf("onnx: output %q: %w", outputs[i], err)
		}
		t.name = outputs[i]
		res[i] = t
	}
	return res, nil
}

func readTensor(v *C.OrtValue) (tensor, error) {
	var ndim C.size_t
	if err := checkStatus(C.ort_get_tensor_ndim(api(), v, &ndim)); err != nil {
		return tensor{}, err
	}
	t := tensor{shape: make([]int64, int(ndim))}
	if ndim > 0 {
		if err := checkStatus(C.ort_get_tensor_shape(api(), v,
			(*C.int64_t)(unsafe.Pointer(&t.shape[0])), ndim)); err != nil {
			return tensor{}, err
		}
	}
	total := 1
	for _, d := range t.shape {
		total *= int(d)
	}
	if total <= 0 {
		return t, nil
	}
	var ptr *C.float
	if err := checkStatus(C.ort_get_tensor_float_data(api(), v, &ptr)); err != nil {
		return tensor{}, err
	}
	t.data = make([]float32, total)
	C.memcpy(unsafe.Pointer(&t.data[0]), unsafe.Pointer(ptr), C.size_t(total*4))
	return t, nil
}
