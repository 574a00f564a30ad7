package stub

// TurboUpload is installed once at device-open time to speed up
// subsequent block transfers; it has no meaningful entry point of its
// own since it is pushed via the raw stub-push control transfer rather
// than booted through the normal block protocol.
var TurboUpload = NewTemplate(0, 0, make([]byte, 64))

// TurboUploadOffset is the fixed on-chip address the stub is pushed to.
const TurboUploadOffset = 0x3000
