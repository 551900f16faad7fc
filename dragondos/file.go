package dragondos

import "encoding/binary"

// FileType identifies how a DragonDos file's content is interpreted.
type FileType int

const (
	// FileTypeData is a plain data file: no 9-byte header, content is
	// the raw bytes exactly as stored.
	FileTypeData FileType = iota
	// FileTypeBasic is a tokenized BASIC program.
	FileTypeBasic
	// FileTypeMachineCode is an executable machine-code image.
	FileTypeMachineCode
)

const (
	headerMarkerStart = 0x55
	headerMarkerEnd   = 0xAA
	headerSize        = 9
	headerTypeBasic   = 1
	headerTypeMC      = 2
)

// File is a decoded DragonDos file: its type, payload, and (for BASIC
// and machine-code files) the load/start addresses the file's own
// header carries.
type File struct {
	Type         FileType
	Data         []byte
	LoadAddress  uint16
	StartAddress uint16
}

// decodeFile interprets raw extent bytes as a DragonDos file: a 9-byte
// header is present only when the leading/trailing marker bytes and
// the declared length are all consistent; otherwise it's a data file
// and raw is the content untouched.
func decodeFile(raw []byte) *File {
	if len(raw) >= headerSize && raw[0] == headerMarkerStart && raw[headerSize-1] == headerMarkerEnd {
		declaredType := raw[1]
		loadAddr := binary.BigEndian.Uint16(raw[2:4])
		length := int(binary.BigEndian.Uint16(raw[4:6]))
		startAddr := binary.BigEndian.Uint16(raw[6:8])
		if (declaredType == headerTypeBasic || declaredType == headerTypeMC) && headerSize+length <= len(raw) {
			ftype := FileTypeBasic
			if declaredType == headerTypeMC {
				ftype = FileTypeMachineCode
			}
			return &File{
				Type:         ftype,
				Data:         append([]byte(nil), raw[headerSize:headerSize+length]...),
				LoadAddress:  loadAddr,
				StartAddress: startAddr,
			}
		}
	}
	return &File{Type: FileTypeData, Data: append([]byte(nil), raw...)}
}

// encodeFile serializes f to the bytes DragonDos stores on disk,
// prepending the 9-byte header for BASIC/machine-code files.
func encodeFile(f *File) []byte {
	if f.Type == FileTypeData {
		return append([]byte(nil), f.Data...)
	}
	headerType := byte(headerTypeBasic)
	if f.Type == FileTypeMachineCode {
		headerType = headerTypeMC
	}
	out := make([]byte, headerSize+len(f.Data))
	out[0] = headerMarkerStart
	out[1] = headerType
	binary.BigEndian.PutUint16(out[2:4], f.LoadAddress)
	binary.BigEndian.PutUint16(out[4:6], uint16(len(f.Data)))
	binary.BigEndian.PutUint16(out[6:8], f.StartAddress)
	out[8] = headerMarkerEnd
	copy(out[headerSize:], f.Data)
	return out
}
