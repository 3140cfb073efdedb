//go:build !nojsonsimd

package sharecore

import (
	"reflect"

	"github.com/bytedance/sonic"
)

func init() {
	// Sonic uses runtime codegen for best performance. Pretouching the hot
	// decode/encode types avoids first-hit latency spikes on template decode
	// and share processing.
	//
	// Errors are best-effort; we fall back to normal behavior if pretouch fails.
	_ = sonic.Pretouch(reflect.TypeOf(BlockTemplate{}))
	_ = sonic.Pretouch(reflect.TypeOf(CoinTemplate{}))
	_ = sonic.Pretouch(reflect.TypeOf(RewardExtra{}))
	_ = sonic.Pretouch(reflect.TypeOf(Share{}))
}
