package globalcache

import (
	"bytes"
	"context"
	"testing"
)

func TestEmbeddedSetScript(t *testing.T) {
	for _, fn := range []string{udfSetWriteMany, udfSetRemoveMany, udfSetScan} {
		if !bytes.Contains(setScript, []byte("function "+fn+"(")) {
			t.Errorf("embedded script does not define %s", fn)
		}
	}
}

func TestUDFRegistry_SaveUDFFile_Missing(t *testing.T) {
	metrics := NewInMemoryMetrics()
	udf := NewUDFRegistry(nil, DefaultAerospikeConfig(), nil, metrics)

	if err := udf.SaveUDFFile(context.Background(), "testdata/does-not-exist.lua"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if metrics.Count(MetricUDFRegister) != 0 {
		t.Error("nothing should be registered when the file cannot be read")
	}
}

func TestFormatBin(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"device_label", "device_label"},
		{[]byte("raw"), "raw"},
		{10, "10"},
		{int64(-3), "-3"},
		{21.12, "21.12"},
		{true, "true"},
	}

	for _, tt := range tests {
		if got := formatBin(tt.in); got != tt.want {
			t.Errorf("formatBin(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
