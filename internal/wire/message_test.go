package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestAuthenticationRoundTrip(t *testing.T) {
	cases := []Authentication{
		{Echo: true, Username: "alice", Password: "s3cr3t"},
		{Echo: false, Username: "", Password: ""},
		{Echo: true, Username: "日本語", Password: "p"},
	}
	for _, want := range cases {
		encoded, err := EncodeAuthentication(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := ReadControlMessage(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != ControlMessage(want) {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
	}
}

func TestEncodeAuthenticationFieldTooLong(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	_, err := EncodeAuthentication(Authentication{Username: string(long)})
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("got %v, want ErrFieldTooLong", err)
	}
}

func TestJoinChannelRoundTrip(t *testing.T) {
	encoded := EncodeJoinChannel(424242)
	got, err := ReadControlMessage(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := JoinChannel{ChannelID: 424242}
	if got != ControlMessage(want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadControlMessageInvalidType(t *testing.T) {
	got, err := ReadControlMessage(bytes.NewReader([]byte{99}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Invalid{Type: 99}
	if got != ControlMessage(want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadControlMessageInvalidUTF8(t *testing.T) {
	// type=1, echo=0, username-len=1, invalid UTF-8 byte, password-len=0
	raw := []byte{TypeAuthentication, 0, 1, 0xff, 0}
	_, err := ReadControlMessage(bytes.NewReader(raw))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestReadControlMessageEOF(t *testing.T) {
	_, err := ReadControlMessage(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestDataFrameKeepAlive(t *testing.T) {
	payload, err := ReadDataFrame(bytes.NewReader([]byte{0, 0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != nil {
		t.Errorf("expected nil payload for keep-alive, got %v", payload)
	}
}

func TestDataFrameRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 1275)
	raw := append([]byte{0xFB, 0x04}, payload...) // 1275 little-endian

	got, err := ReadDataFrame(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload mismatch")
	}
}

func TestDataFrameTooLong(t *testing.T) {
	raw := []byte{0xFC, 0x04} // 1276 little-endian, no payload needed to trip the check
	_, err := ReadDataFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}

func TestEncodeDataFrame(t *testing.T) {
	payload := []byte("Test Message")
	out, err := EncodeDataFrame(7, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{7, 0, 0, 0, byte(len(payload)), 0}
	want = append(want, payload...)
	if !bytes.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestEncodeDataFrameTooLong(t *testing.T) {
	_, err := EncodeDataFrame(0, make([]byte, MaxOpusFrameLen+1))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("got %v, want ErrProtocol", err)
	}
}
