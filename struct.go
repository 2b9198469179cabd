package sevenzip

// On-wire structures decoded directly from a 7z header: the fixed 32-byte
// signature/start headers, and the variable-length StreamsInfo graph
// (pack sizes, the folder coder graph, and substream sizes/digests). The
// decoders for these live in header.go; the folder coder-graph walk that
// turns them into an actual decompressed byte stream lives in folder.go.

type signatureHeader struct {
	Signature [6]byte
	Major     byte
	Minor     byte
	CRC       uint32
}

type startHeader struct {
	Offset uint64
	Size   uint64
	CRC    uint32
}

type packInfo struct {
	position uint64
	streams  uint64
	size     []uint64
	digest   []uint32
}

type coder struct {
	id         []byte
	in, out    uint64
	properties []byte
}

type bindPair struct {
	in, out uint64
}

type folder struct {
	in, out       uint64
	packedStreams uint64
	coder         []*coder
	bindPair      []*bindPair
	size          []uint64
	packed        []uint64
}

type unpackInfo struct {
	folder        []*folder
	digest        []uint32
	digestDefined []bool
}

func (ui *unpackInfo) folderDigestDefined(i int) bool {
	return i < len(ui.digestDefined) && ui.digestDefined[i]
}

type subStreamsInfo struct {
	streams []uint64
	size    []uint64
	digest  []uint32
}

type streamsInfo struct {
	packInfo       *packInfo
	unpackInfo     *unpackInfo
	subStreamsInfo *subStreamsInfo
}

type filesInfo struct {
	file []FileHeader
}

type header struct {
	streamsInfo *streamsInfo
	filesInfo   *filesInfo
}
