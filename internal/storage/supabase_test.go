package storage

import "testing"

func TestPublicURLAndParseReferenceRoundTrip(t *testing.T) {
	store, err := NewSupabaseStore("https://project.supabase.co/", "service-key")
	if err != nil {
		t.Fatalf("NewSupabaseStore: %v", err)
	}

	ref := store.PublicURL("input-images", "abc-photo.jpg")
	want := "https://project.supabase.co/storage/v1/object/public/input-images/abc-photo.jpg"
	if ref != want {
		t.Fatalf("PublicURL mismatch: got %q want %q", ref, want)
	}

	bucket, key, ok := store.ParseReference(ref)
	if !ok {
		t.Fatalf("ParseReference failed for %q", ref)
	}
	if bucket != "input-images" || key != "abc-photo.jpg" {
		t.Fatalf("round trip mismatch: %q / %q", bucket, key)
	}
}

func TestParseReferenceKeepsNestedKeys(t *testing.T) {
	store, _ := NewSupabaseStore("https://project.supabase.co", "service-key")
	bucket, key, ok := store.ParseReference("https://project.supabase.co/storage/v1/object/public/output-images/users/42/out.png")
	if !ok || bucket != "output-images" || key != "users/42/out.png" {
		t.Fatalf("unexpected parse result: %q %q %v", bucket, key, ok)
	}
}

func TestParseReferenceRejectsForeignURLs(t *testing.T) {
	store, _ := NewSupabaseStore("https://project.supabase.co", "service-key")
	for _, ref := range []string{
		"",
		"https://example.com/image.png",
		"https://project.supabase.co/storage/v1/object/public/",
		"https://project.supabase.co/storage/v1/object/public/bucket-only",
	} {
		if _, _, ok := store.ParseReference(ref); ok {
			t.Fatalf("expected parse failure for %q", ref)
		}
	}
}

func TestNewSupabaseStoreValidatesArguments(t *testing.T) {
	if _, err := NewSupabaseStore("", "key"); err == nil {
		t.Fatalf("expected error for empty project URL")
	}
	if _, err := NewSupabaseStore("https://project.supabase.co", "  "); err == nil {
		t.Fatalf("expected error for empty service key")
	}
}
