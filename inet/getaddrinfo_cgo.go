//go:build linux && cgo

package inet

/*
#include <stdlib.h>
#include <string.h>
#include <sys/types.h>
#include <sys/socket.h>
#include <netdb.h>
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/fzft/go-unix/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// getAddrInfo calls the libc resolver so nsswitch, /etc/gai.conf ordering and
// AI_* semantics are exactly the system ones. The call cannot be interrupted;
// ctx is only checked before it starts.
func getAddrInfo(ctx context.Context, host string, hints AddrInfo, service string) ([]AddrInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var h, s *C.char
	if host != "" {
		h = C.CString(host)
		defer C.free(unsafe.Pointer(h))
	}
	if service != "" {
		s = C.CString(service)
		defer C.free(unsafe.Pointer(s))
	}

	var ch C.struct_addrinfo
	family, sockType, protocol, flags := hints.Hints()
	ch.ai_family = C.int(family)
	ch.ai_socktype = C.int(sockType)
	ch.ai_protocol = C.int(protocol)
	ch.ai_flags = C.int(flags)

	var res *C.struct_addrinfo
	ret := C.getaddrinfo(h, s, &ch, &res)
	if ret != 0 {
		return nil, &AddrInfoError{
			Host:    host,
			Service: service,
			Code:    int(ret),
			Message: C.GoString(C.gai_strerror(ret)),
		}
	}
	defer C.freeaddrinfo(res)

	var (
		infos []AddrInfo
		errs  error
	)
	for p := res; p != nil; p = p.ai_next {
		var canon *string
		if p.ai_canonname != nil {
			cn := C.GoString(p.ai_canonname)
			canon = &cn
		}
		var raw []byte
		if p.ai_addrlen > 0 && p.ai_addr != nil {
			raw = C.GoBytes(unsafe.Pointer(p.ai_addr), C.int(p.ai_addrlen))
		}
		ai, err := fromRaw(int(p.ai_family), int(p.ai_socktype), int(p.ai_protocol), int(p.ai_flags), canon, raw)
		if err != nil {
			log.Logger.Warn("skipping addrinfo entry", zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		infos = append(infos, ai)
	}
	if len(infos) == 0 && errs != nil {
		return nil, errs
	}
	return infos, nil
}
