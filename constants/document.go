package constants

// DefaultDocumentType is stored on every record; no classification is performed.
const DefaultDocumentType = "invoice"

// DefaultOCRLanguage is the tesseract language model used for image recognition.
const DefaultOCRLanguage = "eng"
