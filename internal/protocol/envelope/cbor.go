package envelope

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses core deterministic encoding so one envelope always serializes
// to the same bytes.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any. Unknown keys are ignored.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("envelope: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("envelope: CBOR decoder initialization failed: " + err.Error())
	}
}

// Diagnose renders CBOR bytes in diagnostic notation for debug logs.
func Diagnose(b []byte) string {
	s, err := cbor.Diagnose(b)
	if err != nil {
		return "<invalid cbor: " + err.Error() + ">"
	}
	return s
}
