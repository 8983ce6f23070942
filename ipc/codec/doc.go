// Package codec implements the wire format of the IPC system.
//
// Framed mode: every message is a JSON object {"type": string, "data": any}
// immediately followed by one delimiter byte (form feed by default). Since
// JSON escapes all control characters inside strings, a control character
// delimiter never occurs inside a frame. Other delimiters are an assumption
// of the protocol and are not enforced.
//
// Raw mode: opaque bytes, no envelope and no delimiter. Framing is left to
// the application.
//
// Key Components:
//
//   - Codec: stateless Encode/Decode for one configuration. Decode only
//     succeeds once the buffer ends with the delimiter and turns frames
//     that are not valid JSON into messages of type "error".
//
//   - FrameBuffer: the per-connection accumulator for partial frames, with
//     an optional upper bound on the number of buffered bytes.
//
// Supported text encodings are utf8, ascii and latin1.
package codec
