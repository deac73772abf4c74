package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing WizFi360 output. It uses the signature of
// bufio.SplitFunc so it can be used with bufio.Scanner as well as with the
// session's ring buffers.
//
// Three token shapes are recognised, in this order:
//
//  1. the send-ready prompt ("> ") at the start of data,
//  2. an "+IPD," header, returned up to and including its ':' so that the
//     raw payload that follows is never split into lines,
//  3. a line terminated by LF, returned without its trailing CR and LF.
//
// The module runs with echo enabled (ATE1), so command echoes come through
// as ordinary lines.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match send prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match +IPD header. A newline before the colon means a garbled
	// header, which falls through to line splitting.
	if bytes.HasPrefix(data, []byte(IPD)) {
		colon := bytes.IndexByte(data, ':')
		nl := bytes.IndexByte(data, '\n')
		if colon >= 0 && (nl < 0 || colon < nl) {
			return colon + 1, data[0 : colon+1], nil
		}
	}

	// 3. Match a line ending with LF, dropping CR
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimRight(data[0:i], "\r"), nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the module output.
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, FAIL, SendOK, SendFail:
		return TypeFinal
	case Ready, WatchdogReset, WifiConnected, WifiDisconnect, WifiGotIP, AlreadyConnected:
		return TypeURC
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, Busy):
		return TypeFinal
	case strings.HasPrefix(line, IPD):
		return TypeURC
	}
	if _, ok := LinkEvent(line, LinkConnectFail); ok {
		return TypeURC
	}
	if _, ok := LinkEvent(line, LinkConnect); ok {
		return TypeURC
	}
	if _, ok := LinkEvent(line, LinkClosed); ok {
		return TypeURC
	}
	return TypeData
}

// LinkEvent looks for a "<id>,CONNECT"-style notification anywhere in line.
// keyword must end the line and be preceded by the single decimal digit
// naming the link.
func LinkEvent(line, keyword string) (id int, ok bool) {
	i := strings.LastIndex(line, keyword)
	if i < 1 || i+len(keyword) != len(line) {
		return 0, false
	}
	c := line[i-1]
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}
