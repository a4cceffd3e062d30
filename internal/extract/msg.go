package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/fsutil"
)

// Outlook MS-OXMSG property tags this extractor cares about: the first
// four hex digits are the property ID, the last four the variant type.
const (
	tagSubject    = "0037001f" // PT_UNICODE
	tagBody       = "1000001f"
	tagHTMLBody   = "1013001f" // fallback when RTF/HTML compressed form not present
	tagSenderName = "0c1a001f"
	tagSenderAddr = "0c1f001f"
	tagDisplayTo  = "0e04001f"
	tagAttachName = "3707001f"
	tagAttachLong = "3001001f"
	tagAttachData = "37010102" // PT_BINARY
)

// rawAttachment accumulates the name and payload properties belonging to
// one "__attach_version1.0_#NNNNNNNN" storage, since MS-OXMSG scatters an
// attachment's properties across sibling streams within that storage.
type rawAttachment struct {
	storageIndex int
	name         string
	data         []byte
}

// ExtractMSG parses an Outlook Compound File Binary .msg message. Grounded
// on original_source/ingestion/email_utils.py's extract_msg, reimplemented
// against the CFB stream/storage layout Outlook uses (MS-OXMSG) since the
// Go ecosystem has no extract_msg equivalent; richardlehane/mscfb gives
// raw container access and each property is identified by its hex tag
// suffix on the stream name.
func ExtractMSG(path, destination string, limits EmailLimits, opts EmailOptions) ([]EmailItem, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apperr.NewEmailError(path, "opening message: %v", err)
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, nil, apperr.NewEmailError(path, "parsing compound file: %v", err)
	}

	var subject, body, htmlBody, senderName, senderAddr, displayTo string
	attachByStorage := map[int]*rawAttachment{}

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry == nil {
			continue
		}
		name := entry.Name
		tag, ok := propertyTag(name)
		storageIdx := attachmentStorageIndex(entry.Path)

		buf := make([]byte, entry.Size)
		if entry.Size > 0 {
			if _, rerr := entry.Read(buf); rerr != nil && rerr != io.EOF {
				continue
			}
		}

		if storageIdx >= 0 {
			att := attachByStorage[storageIdx]
			if att == nil {
				att = &rawAttachment{storageIndex: storageIdx}
				attachByStorage[storageIdx] = att
			}
			if !ok {
				continue
			}
			switch tag {
			case tagAttachName, tagAttachLong:
				att.name = decodeUTF16LEString(buf)
			case tagAttachData:
				att.data = buf
			}
			continue
		}

		if !ok {
			continue
		}
		switch tag {
		case tagSubject:
			subject = decodeUTF16LEString(buf)
		case tagBody:
			body = decodeUTF16LEString(buf)
		case tagHTMLBody:
			htmlBody = decodeUTF16LEString(buf)
		case tagSenderName:
			senderName = decodeUTF16LEString(buf)
		case tagSenderAddr:
			senderAddr = decodeUTF16LEString(buf)
		case tagDisplayTo:
			displayTo = decodeUTF16LEString(buf)
		}
	}

	var warnings []string
	var items []EmailItem

	var headerText string
	if opts.IncludeHeaders {
		var lines []string
		if subject != "" {
			lines = append(lines, "Subject: "+subject)
		}
		if senderName != "" || senderAddr != "" {
			lines = append(lines, fmt.Sprintf("From: %s <%s>", senderName, senderAddr))
			if senderAddr != "" {
				if _, err := ParseAddress(fmt.Sprintf("%s <%s>", senderName, senderAddr)); err != nil {
					warnings = append(warnings, fmt.Sprintf("From header failed address parsing: %v", err))
				}
			}
		}
		if displayTo != "" {
			lines = append(lines, "To: "+displayTo)
		}
		headerText = strings.Join(lines, "\n")
	}

	if opts.ParseHTML && body == "" && htmlBody != "" {
		body = htmlToText(htmlBody)
	}

	combined := strings.TrimSpace(strings.Join([]string{headerText, body}, "\n"))
	if combined != "" {
		p, err := writeTextFile(destination, "body.txt", combined)
		if err != nil {
			return nil, nil, apperr.NewEmailError(path, "writing body: %v", err)
		}
		items = append(items, EmailItem{Path: p, VirtualPath: "body.txt"})
	}
	if opts.ParseHTML && htmlBody != "" {
		p, err := writeTextFile(destination, "body.html.txt", htmlToText(htmlBody))
		if err != nil {
			return nil, nil, apperr.NewEmailError(path, "writing html body: %v", err)
		}
		items = append(items, EmailItem{Path: p, VirtualPath: "body.html.txt"})
	}

	attDir := filepath.Join(destination, "attachments")
	var totalBytes int64
	count := 0
	for _, att := range sortedAttachments(attachByStorage) {
		if !opts.IncludeAttachments {
			break
		}
		if att.data == nil {
			continue
		}
		count++
		if count > limits.MaxAttachments {
			warnings = append(warnings, "Email contains too many attachments; extra attachments skipped.")
			break
		}
		totalBytes += int64(len(att.data))
		if totalBytes > limits.MaxBytes {
			warnings = append(warnings, "Email attachments exceed size limit; extra attachments skipped.")
			break
		}
		name := att.name
		if name == "" {
			name = "attachment"
		}
		safeName := fsutil.SafeFilename(name)
		if err := os.MkdirAll(attDir, 0o755); err != nil {
			return nil, nil, apperr.NewEmailError(path, "creating attachments dir: %v", err)
		}
		target := filepath.Join(attDir, safeName)
		if err := os.WriteFile(target, att.data, 0o644); err != nil {
			return nil, nil, apperr.NewEmailError(path, "writing attachment: %v", err)
		}
		items = append(items, EmailItem{Path: target, VirtualPath: "attachments/" + safeName})
	}

	return items, warnings, nil
}

// propertyTag extracts the 8-hex-digit MS-OXMSG property tag suffix from a
// CFB stream name like "__substg1.0_0037001F".
func propertyTag(name string) (string, bool) {
	const prefix = "__substg1.0_"
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	tag := strings.ToLower(strings.TrimPrefix(name, prefix))
	if len(tag) != 8 {
		return "", false
	}
	return tag, true
}

// attachmentStorageIndex returns the numeric suffix of an
// "__attach_version1.0_#NNNNNNNN" storage segment in the entry's path, or
// -1 if the entry does not live inside an attachment storage.
func attachmentStorageIndex(path []string) int {
	for _, seg := range path {
		const prefix = "__attach_version1.0_#"
		if strings.HasPrefix(seg, prefix) {
			n, err := strconv.ParseInt(strings.TrimPrefix(seg, prefix), 16, 64)
			if err != nil {
				return -1
			}
			return int(n)
		}
	}
	return -1
}

func sortedAttachments(m map[int]*rawAttachment) []*rawAttachment {
	out := make([]*rawAttachment, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].storageIndex > out[j].storageIndex; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// decodeUTF16LEString decodes a UTF-16LE byte buffer (the PT_UNICODE wire
// form MS-OXMSG uses) into a Go string, stopping at a trailing NUL pair.
func decodeUTF16LEString(b []byte) string {
	if len(b) >= 2 && b[len(b)-1] == 0 && b[len(b)-2] == 0 {
		b = b[:len(b)-2]
	}
	n := len(b) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}
