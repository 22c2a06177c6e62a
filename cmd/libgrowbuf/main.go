// Command libgrowbuf builds the C shared library that exposes growbuf buffers to a
// host runtime:
//
//	go build -buildmode=c-shared -o libgrowbuf.so ./cmd/libgrowbuf
//
// Every function returns a status code (see bindings.Status) instead of raising, and
// sizes cross the boundary as signed 64-bit values so a negative length is detected
// rather than read as a huge unsigned one.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/joshuapare/growbuf/bindings"
)

//export gb_new
func gb_new() C.uint64_t {
	return C.uint64_t(bindings.Default.New())
}

//export gb_write
func gb_write(h C.uint64_t, data *C.uint8_t, dataLen C.int64_t) C.int32_t {
	err := bindings.Default.WriteRaw(bindings.Handle(h), unsafe.Pointer(data), int64(dataLen))
	return C.int32_t(bindings.Status(err))
}

//export gb_bytes
func gb_bytes(h C.uint64_t, addr *C.uintptr_t, length, capacity *C.int64_t) C.int32_t {
	v, err := bindings.Default.Bytes(bindings.Handle(h))
	if err != nil {
		return C.int32_t(bindings.Status(err))
	}
	storeView(v, addr, length, capacity)
	return C.int32_t(bindings.StatusOK)
}

//export gb_release
func gb_release(h C.uint64_t) {
	bindings.Default.Release(bindings.Handle(h))
}

//export gb_destroy
func gb_destroy(h C.uint64_t) {
	bindings.Default.Destroy(bindings.Handle(h))
}

//export gb_detach
func gb_detach(h C.uint64_t, addr *C.uintptr_t, length, capacity *C.int64_t) C.int32_t {
	v, err := bindings.Default.Detach(bindings.Handle(h))
	if err != nil {
		return C.int32_t(bindings.Status(err))
	}
	storeView(v, addr, length, capacity)
	return C.int32_t(bindings.StatusOK)
}

//export gb_free_detached
func gb_free_detached(addr C.uintptr_t) {
	bindings.Default.FreeDetached(uintptr(addr))
}

func storeView(v bindings.View, addr *C.uintptr_t, length, capacity *C.int64_t) {
	if addr != nil {
		*addr = C.uintptr_t(v.Addr)
	}
	if length != nil {
		*length = C.int64_t(v.Len)
	}
	if capacity != nil {
		*capacity = C.int64_t(v.Cap)
	}
}

func main() {}
