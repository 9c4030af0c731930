package convert

import (
	"testing"

	"aitex/internal/util"
)

func BenchmarkBuildRecognitionRequest(b *testing.B) {
	cfg := testConfig()
	png := make([]byte, 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BuildRecognitionRequest(cfg, png)
	}
}

func BenchmarkMarshalRecognitionRequest(b *testing.B) {
	req := BuildRecognitionRequest(testConfig(), make([]byte, 64*1024))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := util.MarshalJSON(req); err != nil {
			b.Fatal(err)
		}
	}
}
