// Package hessian implements the Hessian 2.0 call convention on top of the
// spidex POST path.
//
// A call is encoded as a binary envelope, POSTed with content-type
// application/binary and the "binary" charset, and the reply body is unframed
// and decoded with github.com/apache/dubbo-go-hessian2:
//
//	hessian.Call(ctx, "http://hessian.caucho.com/test/test2", "argTrue", []any{true}, nil,
//	    func(err error, result any) {
//	        if err != nil {
//	            log.Println(err)
//	            return
//	        }
//	        fmt.Println(result)
//	    })
//
// Timeouts and other request options are those of spidex: pass them in the
// *http.Options argument.
package hessian
