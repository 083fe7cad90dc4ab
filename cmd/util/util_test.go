package util

import (
	"bytes"
	"github.com/ValentinKolb/dPair/sp/payload"
	"github.com/spf13/viper"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line longer than %d characters: %q", Wrap, line)
		}
	}

	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("Expected %q, got %q", "short text", got)
	}
}

func TestGetPayload(t *testing.T) {
	t.Cleanup(viper.Reset)

	testCases := []struct {
		name    string
		value   string
		codec   payload.IPayloadCodec
		want    []byte
		wantErr bool
	}{
		{name: "fallback", value: "", codec: payload.NewHexCodec(), want: []byte("WHY")},
		{name: "text", value: "HOW", codec: payload.NewTextCodec(), want: []byte("HOW")},
		{name: "hex", value: "4c5556", codec: payload.NewHexCodec(), want: []byte("LUV")},
		{name: "invalid hex", value: "4c5", codec: payload.NewHexCodec(), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			viper.Set("request", tc.value)
			got, err := GetPayload(tc.codec, "request", "WHY")
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestGetSize(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("request-size", -1)
	if got := GetSize("request-size", []byte("WHY")); got != 3 {
		t.Errorf("Expected payload length 3, got %d", got)
	}

	viper.Set("request-size", 0)
	if got := GetSize("request-size", []byte("WHY")); got != 0 {
		t.Errorf("Expected explicit size 0, got %d", got)
	}
}

func TestGetSocketConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("timeout", 3)
	viper.Set("recv-max-size", 2048)
	viper.Set("write-buffer", 64)
	viper.Set("tcp-nodelay", false)
	viper.Set("tcp-linger", -1)

	conf := GetSocketConfig()
	if conf.TimeoutSecond != 3 || conf.RecvMaxSize != 2048 {
		t.Errorf("Unexpected limits: %+v", conf)
	}
	if conf.SocketConf.WriteBufferSize != 64*1024 {
		t.Errorf("Expected write buffer of 64 KB, got %d bytes", conf.SocketConf.WriteBufferSize)
	}
	if conf.TCPConf.TCPNoDelay || conf.TCPConf.TCPLingerSec != -1 {
		t.Errorf("Unexpected tcp settings: %+v", conf.TCPConf)
	}
	if conf.RecvQueueSize == 0 {
		t.Error("Expected default receive queue size")
	}
}
